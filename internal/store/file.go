package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/twiced-technology-gmbh/taskdesk/internal/filelock"
)

const (
	fileMode = 0o600
	dirMode  = 0o750
)

// File keeps all keys in one JSON object on disk. Every operation takes
// an advisory lock on a sibling ".lock" file so concurrent processes do
// not lose writes.
type File struct {
	path string
}

// NewFile returns a File store at path. The file is created on first write.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file.
func (f *File) Path() string {
	return f.path
}

// Get implements Store.
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	var (
		v  string
		ok bool
	)
	err := f.locked(func() error {
		data, err := f.read()
		if err != nil {
			return err
		}
		v, ok = data[key]
		return nil
	})
	return v, ok, err
}

// Set implements Store.
func (f *File) Set(_ context.Context, key, value string) error {
	return f.locked(func() error {
		data, err := f.read()
		if err != nil {
			return err
		}
		data[key] = value
		return f.write(data)
	})
}

// Delete implements Store.
func (f *File) Delete(_ context.Context, key string) error {
	return f.locked(func() error {
		data, err := f.read()
		if err != nil {
			return err
		}
		if _, ok := data[key]; !ok {
			return nil
		}
		delete(data, key)
		return f.write(data)
	})
}

// Close implements Store.
func (f *File) Close() error { return nil }

func (f *File) locked(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(f.path), dirMode); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	return filelock.With(f.path+".lock", fn)
}

func (f *File) read() (map[string]string, error) {
	data := make(map[string]string)
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing store %s: %w", f.path, err)
	}
	return data, nil
}

// write replaces the file atomically via a temp file and rename.
func (f *File) write(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), fileMode); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}
