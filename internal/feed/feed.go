// Package feed loads batches of audience submissions collected outside the
// live board, e.g. paper cards typed up after a session.
package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Item is one submission to upload.
type Item struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Source    string    `json:"source,omitempty"`
}

// Load reads a batch file. Files ending in .jsonl hold one JSON Item per
// line; anything else is read as plain text with one submission per line.
func Load(path string, logger *slog.Logger) ([]Item, error) {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return LoadFromJSONL(path, logger)
	}
	return LoadFromText(path)
}

// LoadFromJSONL loads items from a JSONL file. Malformed lines and items
// without text are skipped with a warning.
func LoadFromJSONL(path string, logger *slog.Logger) ([]Item, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var items []Item
	lines := strings.Split(string(data), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var item Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			logger.Warn("skipping malformed JSON", "path", path, "line", i+1, "error", err)
			continue
		}
		item.Text = strings.TrimSpace(item.Text)
		if item.Text == "" {
			logger.Warn("skipping item without text", "path", path, "line", i+1)
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no valid items found in %s", path)
	}

	return items, nil
}

// LoadFromText loads one item per non-blank line.
func LoadFromText(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var items []Item
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, Item{Text: line, Source: "manual-upload"})
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no valid items found in %s", path)
	}
	return items, nil
}
