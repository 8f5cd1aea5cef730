package fsstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ReadJSON loads a JSON snapshot into out. A missing or empty file is not an
// error; the bool return reports whether anything was loaded.
func ReadJSON(path string, out any) (bool, error) {
	normalizedPath, err := normalizePath(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(normalizedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("read json %s: %w", normalizedPath, err)
	case len(bytes.TrimSpace(data)) == 0:
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", ErrDecodeFailed, normalizedPath, err)
	}
	return true, nil
}

// WriteJSONAtomic persists v as an indented JSON snapshot via temp file and
// rename, so readers never observe a partial write.
func WriteJSONAtomic(path string, v any) error {
	normalizedPath, err := normalizePath(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrEncodeFailed, normalizedPath, err)
	}
	data = append(data, '\n')
	return writeAtomic(normalizedPath, data)
}
