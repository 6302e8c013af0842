// Package corpus reads and writes the precomputed corpus file built by cmd/corpusbuild.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	domcorpus "github.com/kailas-cloud/tourassist/internal/domain/corpus"
)

// Supported file formats.
const (
	FormatAuto    = "auto"
	FormatJSON    = "json"
	FormatJSONL   = "jsonl"
	FormatParquet = "parquet"
)

// maxLineSize bounds one JSONL record (a 3072-dim vector is ~40KB of text).
const maxLineSize = 16 << 20

// Record is one corpus row as stored on disk.
type Record struct {
	ID          string    `json:"id" parquet:"id"`
	Title       string    `json:"title" parquet:"title"`
	Description string    `json:"description" parquet:"description"`
	Vector      []float32 `json:"vector" parquet:"vector,list"`
}

// ErrUnknownFormat is returned for an unsupported extension or format name.
var ErrUnknownFormat = errors.New("unknown corpus format")

// DetectFormat resolves "auto" (or "") from the file extension.
func DetectFormat(path, format string) (string, error) {
	if format != "" && format != FormatAuto {
		switch format {
		case FormatJSON, FormatJSONL, FormatParquet:
			return format, nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".parquet":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("%w: cannot infer from %q", ErrUnknownFormat, path)
}

// Load reads the corpus file and builds the index. A missing, empty or malformed file is an
// error; a well-formed file with zero records yields an empty (not ready) index.
func Load(path, format string) (*domcorpus.Index, error) {
	records, err := Read(path, format)
	if err != nil {
		return nil, err
	}
	entries, err := ToEntries(records)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	idx, err := domcorpus.NewIndex(entries)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	return idx, nil
}

// Read decodes raw records.
func Read(path, format string) ([]Record, error) {
	format, err := DetectFormat(path, format)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("corpus file: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("corpus file %s is empty", path)
	}

	switch format {
	case FormatParquet:
		rows, err := parquet.ReadFile[Record](path)
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
		return rows, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	if format == FormatJSONL {
		return readJSONL(f)
	}
	var records []Record
	dec := json.NewDecoder(f)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode json %s: %w", path, err)
	}
	if records == nil {
		return nil, fmt.Errorf("decode json %s: expected an array of records", path)
	}
	return records, nil
}

func readJSONL(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	records := []Record{}
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("decode jsonl line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan jsonl: %w", err)
	}
	return records, nil
}

// ToEntries validates records into domain entries.
func ToEntries(records []Record) ([]domcorpus.Entry, error) {
	entries := make([]domcorpus.Entry, 0, len(records))
	for i, r := range records {
		e, err := domcorpus.NewEntry(r.ID, r.Title, r.Description, r.Vector)
		if err != nil {
			return nil, fmt.Errorf("record [%d]: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Write stores records in the given format, creating parent directories.
// The file is written to a temp name first and renamed.
func Write(path, format string, records []Record) error {
	format, err := DetectFormat(path, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := write(tmp, format, records); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename corpus: %w", err)
	}
	return nil
}

func write(path, format string, records []Record) error {
	if format == FormatParquet {
		if err := parquet.WriteFile(path, records); err != nil {
			return fmt.Errorf("write parquet: %w", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create corpus: %w", err)
	}
	w := bufio.NewWriter(f)

	switch format {
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, r := range records {
			if err = enc.Encode(r); err != nil {
				break
			}
		}
	default:
		if records == nil {
			records = []Record{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(records)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("encode corpus: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush corpus: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close corpus: %w", err)
	}
	return nil
}
