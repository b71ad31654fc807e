// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// BACKEND CONTRACT TESTS
// =============================================================================

func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()

	fkv, err := NewFileKV(filepath.Join(dir, "files"))
	require.NoError(t, err)

	skv, err := NewSQLiteKV(filepath.Join(dir, "db", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { skv.Close() })

	return map[string]KV{
		"file":   fkv,
		"sqlite": skv,
		"memory": NewMemoryKV(),
	}
}

func TestKV_Contract(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get("missing")
			require.True(t, errors.Is(err, ErrNotFound), "got %v", err)

			require.NoError(t, kv.Set("alpha", []byte(`{"a":1}`)))
			got, err := kv.Get("alpha")
			require.NoError(t, err)
			require.JSONEq(t, `{"a":1}`, string(got))

			require.NoError(t, kv.Set("alpha", []byte(`[]`)))
			got, err = kv.Get("alpha")
			require.NoError(t, err)
			require.Equal(t, "[]", string(got))

			require.NoError(t, kv.Delete("alpha"))
			_, err = kv.Get("alpha")
			require.ErrorIs(t, err, ErrNotFound)

			// deleting twice is fine
			require.NoError(t, kv.Delete("alpha"))
		})
	}
}

func TestMemoryKV_CopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	buf := []byte("abc")
	require.NoError(t, kv.Set("k", buf))
	buf[0] = 'x'

	got, err := kv.Get("k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))
}

func TestFileKV_RejectsPathKeys(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	require.Error(t, kv.Set("../escape", []byte("x")))
	_, err = kv.Get("a/b")
	require.Error(t, err)
}

func TestFileKV_PrivatePermissions(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, kv.Set("secret", []byte("x")))

	info, err := os.Stat(kv.Path("secret"))
	require.NoError(t, err)
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		t.Errorf("record is readable by others: %v", perm)
	}
}

func TestSQLiteKV_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")

	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set("k", []byte("v")))
	require.NoError(t, kv.Close())

	kv, err = NewSQLiteKV(path)
	require.NoError(t, err)
	defer kv.Close()

	got, err := kv.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", string(got))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	kv, err := Open("", dir)
	require.NoError(t, err)
	require.IsType(t, &FileKV{}, kv)

	kv, err = Open("SQLite", dir)
	require.NoError(t, err)
	require.IsType(t, &SQLiteKV{}, kv)
	require.FileExists(t, filepath.Join(dir, SQLiteFileName))
	kv.Close()

	kv, err = Open("memory", dir)
	require.NoError(t, err)
	require.IsType(t, &MemoryKV{}, kv)

	_, err = Open("redis", dir)
	require.Error(t, err)
}
