// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/renpak/lib/failure"
)

// ErrDuplicateEntry is returned when the same name is added twice.
var ErrDuplicateEntry = errors.New("duplicate entry name")

// errWriterClosed guards against use after Finish or Abort.
var errWriterClosed = errors.New("archive writer already finished")

// Writer builds a new archive. Offsets are assigned from the order of
// Add calls; nothing from an input archive's layout is reused. The
// archive is assembled in a temporary file in the destination
// directory and renamed over path by Finish.
type Writer struct {
	path     string
	file     *os.File
	buffered *bufio.Writer
	key      Key
	position int64
	records  []indexRecord
	names    map[string]struct{}
	closed   bool
	sticky   error
}

// Create starts a new archive that will be published at path. The key
// should be the input archive's key so obfuscated values stay
// comparable between builds.
func Create(path string, key Key) (*Writer, error) {
	directory := filepath.Dir(path)
	file, err := os.CreateTemp(directory, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, failure.New(failure.IO, "create archive", path, err)
	}
	writer := &Writer{
		path:     path,
		file:     file,
		buffered: bufio.NewWriterSize(file, 1<<20),
		key:      key,
		names:    make(map[string]struct{}),
	}
	var reserved [HeaderSize]byte
	if err := writer.write(reserved[:]); err != nil {
		writer.Abort()
		return nil, err
	}
	return writer, nil
}

// TempPath returns the path of the in-progress temporary file.
func (w *Writer) TempPath() string { return w.file.Name() }

// Len returns the number of entries added so far.
func (w *Writer) Len() int { return len(w.records) }

func (w *Writer) write(data []byte) error {
	if w.sticky != nil {
		return w.sticky
	}
	n, err := w.buffered.Write(data)
	w.position += int64(n)
	if err != nil {
		w.sticky = failure.New(failure.IO, "write archive", w.path, err)
		return w.sticky
	}
	return nil
}

func (w *Writer) begin(name string) error {
	if w.closed {
		return errWriterClosed
	}
	if w.sticky != nil {
		return w.sticky
	}
	if _, exists := w.names[name]; exists {
		return failure.New(failure.Format, "add entry", name, ErrDuplicateEntry)
	}
	return nil
}

// Add appends an entry whose content is held in memory.
func (w *Writer) Add(name string, data []byte) error {
	if err := w.begin(name); err != nil {
		return err
	}
	offset := w.position
	if err := w.write(data); err != nil {
		return err
	}
	w.commit(name, offset, int64(len(data)))
	return nil
}

// AddFrom appends an entry by streaming exactly length bytes from
// source. A short source is an error and leaves the writer unusable,
// since the bytes already copied cannot be retracted.
func (w *Writer) AddFrom(name string, source io.Reader, length int64) error {
	if err := w.begin(name); err != nil {
		return err
	}
	offset := w.position
	copied, err := io.CopyN(w.buffered, source, length)
	w.position += copied
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: source ended after %d of %d bytes", ErrTruncatedEntry, copied, length)
			w.sticky = failure.New(failure.Format, "copy entry", name, err)
		} else {
			w.sticky = failure.New(failure.IO, "copy entry", name, err)
		}
		return w.sticky
	}
	w.commit(name, offset, length)
	return nil
}

func (w *Writer) commit(name string, offset, length int64) {
	w.names[name] = struct{}{}
	w.records = append(w.records, indexRecord{
		name: name,
		span: w.key.Obfuscate(Span{Offset: offset, Length: length}),
	})
}

// Finish writes the index and header, syncs the file, and atomically
// replaces path. It returns the total size of the published archive.
// On error the temporary file is removed and path is untouched.
func (w *Writer) Finish() (int64, error) {
	if w.closed {
		return 0, errWriterClosed
	}
	if w.sticky != nil {
		w.Abort()
		return 0, w.sticky
	}

	indexOffset := w.position
	pickled, err := encodeIndex(w.records)
	if err != nil {
		w.Abort()
		return 0, failure.New(failure.Format, "encode index", w.path, err)
	}
	compressed, err := compressIndex(pickled)
	if err != nil {
		w.Abort()
		return 0, failure.New(failure.IO, "compress index", w.path, err)
	}
	if err := w.write(compressed); err != nil {
		w.Abort()
		return 0, err
	}
	if err := w.buffered.Flush(); err != nil {
		w.Abort()
		return 0, failure.New(failure.IO, "flush archive", w.path, err)
	}

	header := Header{IndexOffset: indexOffset, Key: w.key}.Bytes()
	if _, err := w.file.WriteAt(header[:], 0); err != nil {
		w.Abort()
		return 0, failure.New(failure.IO, "write header", w.path, err)
	}
	if err := w.file.Sync(); err != nil {
		w.Abort()
		return 0, failure.New(failure.IO, "sync archive", w.path, err)
	}
	temporary := w.file.Name()
	if err := w.file.Close(); err != nil {
		w.closed = true
		os.Remove(temporary)
		return 0, failure.New(failure.IO, "close archive", w.path, err)
	}
	w.closed = true
	if err := os.Rename(temporary, w.path); err != nil {
		os.Remove(temporary)
		return 0, failure.New(failure.IO, "publish archive", w.path, err)
	}
	syncDirectory(filepath.Dir(w.path))
	return w.position, nil
}

// Abort discards the temporary file. Safe to call more than once and
// after a failed Finish.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	temporary := w.file.Name()
	closeErr := w.file.Close()
	removeErr := os.Remove(temporary)
	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return failure.New(failure.IO, "remove temporary archive", temporary, removeErr)
	}
	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return failure.New(failure.IO, "close temporary archive", temporary, closeErr)
	}
	return nil
}

// syncDirectory flushes the directory entry for a rename. Failure only
// weakens crash durability, so it is not reported.
func syncDirectory(directory string) {
	handle, err := os.Open(directory)
	if err != nil {
		return
	}
	handle.Sync()
	handle.Close()
}
