// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jeranaias/chathub/internal/util"
)

// validKey restricts keys to names that are safe as file names.
var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// FileKV stores each key as <BaseDir>/<key>.json. Writes are atomic, so a
// crash leaves either the old or the new record, never a partial one.
type FileKV struct {
	// BaseDir is the directory holding the records.
	// Default: ~/.chathub/data/
	BaseDir string
}

// NewFileKV creates a file-backed store in baseDir, creating it if needed.
func NewFileKV(baseDir string) (*FileKV, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileKV{BaseDir: baseDir}, nil
}

// Path returns the file that backs key.
func (f *FileKV) Path(key string) string {
	return filepath.Join(f.BaseDir, key+".json")
}

func (f *FileKV) Get(key string) ([]byte, error) {
	if !validKey.MatchString(key) {
		return nil, fmt.Errorf("invalid key %q", key)
	}
	data, err := os.ReadFile(f.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (f *FileKV) Set(key string, value []byte) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid key %q", key)
	}
	return util.AtomicWriteFileWithDir(f.Path(key), value, 0600, 0700)
}

func (f *FileKV) Delete(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid key %q", key)
	}
	if err := os.Remove(f.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FileKV) Close() error { return nil }
