// Package credential provides the inference API key.
//
// A missing key is a normal state: the pipeline skips inference and uses the
// heuristic summary. Stores report it with ErrNotFound.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound means no API key is configured.
var ErrNotFound = errors.New("credential not found")

// Store yields the inference API key.
type Store interface {
	APIKey() (string, error)
}

// Static is a key supplied directly by configuration.
type Static string

// APIKey returns the key, or ErrNotFound if it is blank.
func (s Static) APIKey() (string, error) {
	key := strings.TrimSpace(string(s))
	if key == "" {
		return "", ErrNotFound
	}
	return key, nil
}

// Chain returns the first key any store yields.
type Chain []Store

// APIKey walks the chain in order. Errors other than ErrNotFound are
// returned immediately.
func (c Chain) APIKey() (string, error) {
	for _, s := range c {
		key, err := s.APIKey()
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", ErrNotFound
}

// fileContents is the on-disk layout of a File store.
type fileContents struct {
	APIKey string `json:"api_key"`
}

// File persists the key as JSON, e.g. ~/.freeflow/credentials.json.
type File struct {
	path string
}

// NewFile creates a File store at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// APIKey reads the key from disk. A missing file or blank key is ErrNotFound.
func (f *File) APIKey() (string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading credentials: %w", err)
	}
	var c fileContents
	if err := json.Unmarshal(data, &c); err != nil {
		return "", fmt.Errorf("parsing credentials %s: %w", f.path, err)
	}
	return Static(c.APIKey).APIKey()
}

// Save writes the key atomically (write to temp, then rename) with
// owner-only permissions.
func (f *File) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("refusing to save an empty API key")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fileContents{APIKey: key}, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// Delete removes the stored key. Deleting a missing key is not an error.
func (f *File) Delete() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
