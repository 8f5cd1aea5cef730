package fsstore

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteJSONAtomic_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	in := sample{Name: "parley", Count: 3}
	if err := WriteJSONAtomic(path, in); err != nil {
		t.Fatalf("WriteJSONAtomic() error = %v", err)
	}

	var out sample
	found, err := ReadJSON(path, &out)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if !found {
		t.Fatal("ReadJSON() found = false")
	}
	if out != in {
		t.Fatalf("ReadJSON() = %+v, want %+v", out, in)
	}
}

func TestReadJSON_MissingFile(t *testing.T) {
	var out sample
	found, err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &out)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if found {
		t.Fatal("ReadJSON() found = true for missing file")
	}
}

func TestReadJSON_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := writeAtomic(path, []byte("{not json")); err != nil {
		t.Fatalf("writeAtomic() error = %v", err)
	}
	var out sample
	_, err := ReadJSON(path, &out)
	if !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("ReadJSON() error = %v, want ErrDecodeFailed", err)
	}
}

func TestAppendAndReadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "turns.jsonl")
	for i := 0; i < 3; i++ {
		if err := AppendJSONL(path, sample{Name: "turn", Count: i}); err != nil {
			t.Fatalf("AppendJSONL() error = %v", err)
		}
	}

	var got []sample
	err := ReadJSONL(path, func(line []byte) error {
		var s sample
		if err := json.Unmarshal(line, &s); err != nil {
			return err
		}
		got = append(got, s)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadJSONL() error = %v", err)
	}
	if len(got) != 3 || got[2].Count != 2 {
		t.Fatalf("ReadJSONL() lines = %+v", got)
	}
}

func TestReadJSONL_MissingFile(t *testing.T) {
	err := ReadJSONL(filepath.Join(t.TempDir(), "absent.jsonl"), func([]byte) error {
		t.Fatal("callback should not run for missing file")
		return nil
	})
	if err != nil {
		t.Fatalf("ReadJSONL() error = %v", err)
	}
}

func TestNormalizePath_Empty(t *testing.T) {
	if _, err := normalizePath("   "); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("normalizePath() error = %v, want ErrInvalidPath", err)
	}
}
