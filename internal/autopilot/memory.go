package autopilot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

const maxRecords = 10

// CycleRecord captures what happened in a single autopilot cycle.
type CycleRecord struct {
	Day      int      `json:"day"`
	Actions  []Action `json:"actions"`
	Cash     float64  `json:"cash"`
	Profit   float64  `json:"profit"`
	Serviced int      `json:"serviced"`
	Missed   int      `json:"missed"`
}

// CycleMemory keeps a ring of recent cycle records, optionally on disk.
type CycleMemory struct {
	Records []CycleRecord `json:"records"`

	path string
}

// LoadMemory reads the memory file. A missing or empty path gives an empty
// memory; a damaged file is logged and replaced.
func LoadMemory(path string) *CycleMemory {
	mem := &CycleMemory{path: path}
	if path == "" {
		return mem
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mem
	}
	if err := json.Unmarshal(data, mem); err != nil {
		slog.Warn("autopilot memory corrupted, starting fresh", "error", err)
		return &CycleMemory{path: path}
	}
	return mem
}

// Save writes the memory to disk.
func (m *CycleMemory) Save() {
	if m.path == "" {
		return
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		slog.Error("failed to marshal autopilot memory", "error", err)
		return
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		slog.Error("failed to write autopilot memory", "error", err)
	}
}

// Add appends a record, keeping only the most recent ones.
func (m *CycleMemory) Add(r CycleRecord) {
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// Report summarizes the remembered days for the log.
func (m *CycleMemory) Report() string {
	if len(m.Records) == 0 {
		return "no days played yet"
	}
	var (
		profit   float64
		serviced int
		missed   int
	)
	var lines []string
	for _, r := range m.Records {
		profit += r.Profit
		serviced += r.Serviced
		missed += r.Missed
		lines = append(lines, fmt.Sprintf("day %d: $%s profit, %d/%d serviced",
			r.Day, humanize.CommafWithDigits(r.Profit, 2), r.Serviced, r.Serviced+r.Missed))
	}
	last := m.Records[len(m.Records)-1]
	lines = append(lines, fmt.Sprintf("last %d days: $%s profit, %s visits, %d missed, cash $%s",
		len(m.Records), humanize.CommafWithDigits(profit, 2),
		humanize.Comma(int64(serviced)), missed, humanize.CommafWithDigits(last.Cash, 2)))
	return strings.Join(lines, "\n")
}
