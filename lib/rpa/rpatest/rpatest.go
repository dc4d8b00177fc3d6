// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpatest builds RPA-3.0 fixture archives for tests in other
// packages.
package rpatest

import (
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/renpak/lib/rpa"
)

// File is one fixture entry.
type File struct {
	Name string
	Data []byte
}

// Write creates an archive at directory/name containing files in the
// given order and returns its path.
func Write(t testing.TB, directory, name string, key rpa.Key, files ...File) string {
	t.Helper()
	path := filepath.Join(directory, name)
	writer, err := rpa.Create(path, key)
	if err != nil {
		t.Fatalf("rpatest: creating %s: %v", path, err)
	}
	for _, file := range files {
		if err := writer.Add(file.Name, file.Data); err != nil {
			writer.Abort()
			t.Fatalf("rpatest: adding %s: %v", file.Name, err)
		}
	}
	if _, err := writer.Finish(); err != nil {
		t.Fatalf("rpatest: finishing %s: %v", path, err)
	}
	return path
}

// ReadAll opens the archive at path and returns every entry's content
// keyed by name.
func ReadAll(t testing.TB, path string) map[string][]byte {
	t.Helper()
	reader, err := rpa.Open(path)
	if err != nil {
		t.Fatalf("rpatest: opening %s: %v", path, err)
	}
	defer reader.Close()
	out := make(map[string][]byte, reader.Len())
	for _, entry := range reader.Entries() {
		data, err := reader.ReadEntry(entry)
		if err != nil {
			t.Fatalf("rpatest: reading %s: %v", entry.Name, err)
		}
		out[entry.Name] = data
	}
	return out
}

// Names returns the entry names of the archive at path in stable input
// order.
func Names(t testing.TB, path string) []string {
	t.Helper()
	reader, err := rpa.Open(path)
	if err != nil {
		t.Fatalf("rpatest: opening %s: %v", path, err)
	}
	defer reader.Close()
	var names []string
	for _, entry := range reader.Entries() {
		names = append(names, entry.Name)
	}
	return names
}
