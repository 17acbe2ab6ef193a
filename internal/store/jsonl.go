package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// Record is one JSON object read from a JSONL file with its 1-based line
// number.
type Record struct {
	Line int
	Data json.RawMessage
}

// ReadJSONL reads every non-empty line of a JSONL file. The first line that
// is not valid JSON fails the read with its file line number; blank lines
// are skipped but still counted.
func ReadJSONL(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("%s line %d: %w: malformed JSON", path, line, types.ErrValidation)
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		records = append(records, Record{Line: line, Data: json.RawMessage(cp)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// WriteJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func WriteJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(what string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", what, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// MarshalRow flattens a row into one JSON object with the id alongside the
// fields.
func MarshalRow(r types.Row) (json.RawMessage, error) {
	flat := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat[types.FieldID] = r.ID
	return json.Marshal(flat)
}

// Export writes every row of the collection, in default order, to path.
func (c *Collection) Export(ctx context.Context, path string) (int, error) {
	rows, err := c.List(ctx, nil)
	if err != nil {
		return 0, err
	}
	records := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		rec, err := MarshalRow(r)
		if err != nil {
			return 0, fmt.Errorf("encode %s/%s: %w", c.table.name, r.ID, err)
		}
		records = append(records, rec)
	}
	if err := WriteJSONL(path, records); err != nil {
		return 0, err
	}
	c.store.log.Infof("exported %d rows from %s to %s", len(records), c.table.name, path)
	return len(records), nil
}
