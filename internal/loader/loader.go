// Package loader reads legacy content items into model.LegacyItem values.
package loader

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bryan-buckman/nutrihub/internal/model"
)

// LoadFile reads a JSON array of legacy items from path.
func LoadFile(path string) ([]model.LegacyItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	items, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return items, nil
}

// Decode reads a JSON array of legacy items from r. Only a malformed array is
// an error; a record that does not fit LegacyItem is returned with DecodeErr
// set so the migration can report it on its own.
func Decode(r io.Reader) ([]model.LegacyItem, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}

	items := make([]model.LegacyItem, len(raw))
	for i, msg := range raw {
		if err := json.Unmarshal(msg, &items[i]); err != nil {
			items[i].DecodeErr = fmt.Errorf("record %d: %w", i, err)
			slog.Warn("[Loader] Malformed legacy record",
				slog.Int("index", i),
				slog.String("id", items[i].ID),
				slog.String("error", err.Error()))
		}
	}
	return items, nil
}
