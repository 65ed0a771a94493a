package generator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteRecords serializes records as newline-delimited JSON to the writer,
// the format the ingest command streams.
func WriteRecords(w io.Writer, records []Record) error {
	encoder := json.NewEncoder(w)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}

// WriteRecordsFile writes records as NDJSON to the given path, creating
// parent directories as needed.
func WriteRecordsFile(path string, records []Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	return WriteRecords(file, records)
}
