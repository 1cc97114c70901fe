package core

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/rtdbpush/internal/rtdb"
)

// MaxFileSize is the default limit for input documents (100MB).
var MaxFileSize int64 = 100 * 1024 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is a parsed input file.
type Document struct {
	// Raw is the file content as uploaded, minus any UTF-8 byte order mark.
	Raw []byte
	// Value is the decoded JSON, with numbers kept as json.Number.
	Value any
}

// Entries returns the number of top-level entries: keys for an object,
// elements for an array, zero for a scalar.
func (d *Document) Entries() int {
	switch v := d.Value.(type) {
	case map[string]any:
		return len(v)
	case []any:
		return len(v)
	default:
		return 0
	}
}

// LoadDocument reads and parses the JSON file at path. maxSize <= 0 uses
// MaxFileSize.
func LoadDocument(path string, maxSize int64) (*Document, error) {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, path, info.Size(), maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, path, maxSize)
	}

	return ParseDocument(data)
}

// ParseDocument parses data as a single JSON value.
func ParseDocument(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	v, err := rtdb.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	return &Document{Raw: data, Value: v}, nil
}
