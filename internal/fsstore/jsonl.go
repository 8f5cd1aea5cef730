package fsstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AppendJSONL appends v as one JSON line to the log at path, creating the
// file and its parent directory on first write.
func AppendJSONL(path string, v any) error {
	normalizedPath, err := normalizePath(path)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: jsonl encode %s: %v", ErrEncodeFailed, normalizedPath, err)
	}
	if err := EnsureDir(filepath.Dir(normalizedPath)); err != nil {
		return err
	}
	f, err := os.OpenFile(normalizedPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defaultFilePerm)
	if err != nil {
		return fmt.Errorf("jsonl open %s: %w", normalizedPath, err)
	}
	defer f.Close()
	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("jsonl append %s: %w", normalizedPath, err)
	}
	return nil
}

// ReadJSONL streams every line of the log at path through fn. Blank lines
// are skipped; a missing file yields zero lines.
func ReadJSONL(path string, fn func(line []byte) error) error {
	normalizedPath, err := normalizePath(path)
	if err != nil {
		return err
	}
	f, err := os.Open(normalizedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("jsonl open %s: %w", normalizedPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("jsonl scan %s: %w", normalizedPath, err)
	}
	return nil
}
