package persistence

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"

	"github.com/talgya/poopster/internal/engine"
)

// ErrCorrupt means a stored save failed its checksum or could not be decoded.
var ErrCorrupt = errors.New("corrupt save")

// encodeSave packs a save as LZ4-compressed JSON and returns it with the
// hex BLAKE3 checksum of the compressed bytes.
func encodeSave(s engine.Saved) ([]byte, string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, "", fmt.Errorf("marshal save: %w", err)
	}

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, "", fmt.Errorf("compress save: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("compress save: %w", err)
	}

	blob := buf.Bytes()
	return blob, checksum(blob), nil
}

// decodeSave verifies and unpacks a blob written by encodeSave.
func decodeSave(blob []byte, sum string) (engine.Saved, error) {
	var s engine.Saved
	if checksum(blob) != sum {
		return s, fmt.Errorf("checksum mismatch: %w", ErrCorrupt)
	}

	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(blob)))
	if err != nil {
		return s, fmt.Errorf("decompress: %v: %w", err, ErrCorrupt)
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("unmarshal: %v: %w", err, ErrCorrupt)
	}
	return s, nil
}

func checksum(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
