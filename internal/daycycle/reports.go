package daycycle

// DaysPerWeek groups days for the weekly report.
const DaysPerWeek = 7

// WeekOf returns the week index a game day falls in.
func WeekOf(day int) int {
	return day / DaysPerWeek
}

// Summary aggregates a run of settled days.
type Summary struct {
	Days       int     `json:"days"`
	Revenue    float64 `json:"total_revenue"`
	Expenses   float64 `json:"total_expenses"`
	Profit     float64 `json:"total_profit"`
	Serviced   int     `json:"houses_serviced"`
	Missed     int     `json:"houses_missed"`
	Efficiency float64 `json:"efficiency"` // Serviced share of all selected visits
}

// Weekly totals the results. An empty slice yields the zero summary.
func Weekly(results []*Result) Summary {
	var s Summary
	for _, r := range results {
		s.Days++
		s.Revenue += r.Revenue
		s.Expenses += r.Expenses
		s.Serviced += r.Serviced
		s.Missed += r.Missed
	}
	s.Profit = s.Revenue - s.Expenses
	if total := s.Serviced + s.Missed; total > 0 {
		s.Efficiency = float64(s.Serviced) / float64(total)
	}
	return s
}

// Milestones returns the milestones reached by total profit.
func Milestones(profit float64, milestones []float64) []float64 {
	reached := []float64{}
	for _, m := range milestones {
		if profit >= m {
			reached = append(reached, m)
		}
	}
	return reached
}

// Crossed returns the milestones reached at now but not at before.
func Crossed(before, now float64, milestones []float64) []float64 {
	var out []float64
	for _, m := range milestones {
		if before < m && now >= m {
			out = append(out, m)
		}
	}
	return out
}
