// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// =============================================================================
// KEY-VALUE BACKEND
// =============================================================================

// KV is a durable string-keyed record store. Each key holds one opaque JSON
// document. Implementations must be safe for concurrent use.
type KV interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set replaces the value for key.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// SQLiteFileName is the database file used by the sqlite backend.
const SQLiteFileName = "chathub.db"

// Open returns the KV backend named by backend, rooted at dataDir.
func Open(backend, dataDir string) (KV, error) {
	switch strings.ToLower(backend) {
	case "", BackendFile:
		return NewFileKV(dataDir)
	case BackendSQLite:
		return NewSQLiteKV(filepath.Join(dataDir, SQLiteFileName))
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want file, sqlite or memory)", backend)
	}
}

// =============================================================================
// MEMORY BACKEND
// =============================================================================

// MemoryKV keeps records in process memory. Used for tests and for
// throwaway sessions where nothing should touch disk.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	m.data[key] = v
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Close() error { return nil }

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned by KV.Get when a key has never been written.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &StoreError{Message: "record not found"}

// StoreError represents a storage-related error.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing storage errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
