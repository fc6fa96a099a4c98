// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fastqindex

import (
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"
)

// Sink is the abstract byte channel that IndexWriter and Extractor
// write to. Concrete implementations: FileSink and ConsoleSink.
type Sink interface {
	// Open opens the Sink without acquiring a lock.
	Open() error

	// OpenWithWriteLock opens the Sink and acquires an exclusive
	// advisory lock for the duration of the write session. Console
	// sinks ignore this and behave like Open.
	OpenWithWriteLock() error

	// Close releases all resources acquired by Open.
	Close() error

	// Write appends bytes, following io.Writer semantics.
	Write(p []byte) (int, error)

	// Flush ensures buffered data reaches the underlying medium.
	Flush() error

	// Seek repositions the Sink for the finalization rewrite. Console
	// sinks do not support it.
	Seek(offset int64, whence SeekWhence) (int64, error)

	// Tell returns the current absolute offset.
	Tell() (int64, error)
}

// FileSink is a Sink backed by a regular file.
type FileSink struct {
	path           string
	forceOverwrite bool
	f              *os.File
	lock           *flock.Flock
}

// NewFileSink returns a FileSink writing to path. If forceOverwrite is
// false, opening fails when path already exists.
func NewFileSink(path string, forceOverwrite bool) *FileSink {
	return &FileSink{path: path, forceOverwrite: forceOverwrite}
}

func (s *FileSink) open(flags int) error {
	if !s.forceOverwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(s.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSinkOpen, err)
	}
	s.f = f
	return nil
}

// Open implements Sink.
func (s *FileSink) Open() error {
	return s.open(os.O_CREATE | os.O_WRONLY | os.O_TRUNC)
}

// OpenWithWriteLock implements Sink.
func (s *FileSink) OpenWithWriteLock() error {
	if err := s.Open(); err != nil {
		return err
	}
	lock := flock.New(s.path)
	ok, err := lock.TryLock()
	if err != nil {
		s.f.Close()
		return fmt.Errorf("%w: %v", ErrLockContention, err)
	}
	if !ok {
		s.f.Close()
		return fmt.Errorf("%w: %s is already locked", ErrLockContention, s.path)
	}
	s.lock = lock
	return nil
}

// Close implements Sink.
func (s *FileSink) Close() error {
	var err error
	if s.lock != nil {
		err = s.lock.Unlock()
	}
	if s.f != nil {
		if cerr := s.f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	return nil
}

// Write implements Sink.
func (s *FileSink) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	return n, nil
}

// Flush implements Sink.
func (s *FileSink) Flush() error {
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	return nil
}

// Seek implements Sink.
func (s *FileSink) Seek(offset int64, whence SeekWhence) (int64, error) {
	var w int
	switch whence {
	case SeekAbsolute:
		w = io.SeekStart
	case SeekRelative:
		w = io.SeekCurrent
	default:
		return 0, fmt.Errorf("%w: unknown seek whence %d", ErrSinkWrite, whence)
	}
	pos, err := s.f.Seek(offset, w)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	return pos, nil
}

// Tell implements Sink.
func (s *FileSink) Tell() (int64, error) {
	return s.Seek(0, SeekRelative)
}

// ConsoleSink is a Sink that writes to an arbitrary io.Writer, typically
// os.Stdout. It ignores locking and does not support Seek, matching the
// console sink behavior described by the external interface contract.
type ConsoleSink struct {
	w io.Writer
}

// NewConsoleSink returns a ConsoleSink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Open implements Sink; it is a no-op.
func (s *ConsoleSink) Open() error { return nil }

// OpenWithWriteLock implements Sink; console sinks ignore locking.
func (s *ConsoleSink) OpenWithWriteLock() error { return nil }

// Close implements Sink; it is a no-op.
func (s *ConsoleSink) Close() error { return nil }

// Write implements Sink.
func (s *ConsoleSink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	return n, nil
}

// Flush implements Sink. If the underlying writer supports Sync/Flush
// it is invoked; otherwise this is a no-op.
func (s *ConsoleSink) Flush() error {
	type flusher interface{ Flush() error }
	type syncer interface{ Sync() error }
	if f, ok := s.w.(flusher); ok {
		return f.Flush()
	}
	if sy, ok := s.w.(syncer); ok {
		return sy.Sync()
	}
	return nil
}

// Seek implements Sink; console sinks are not seekable.
func (s *ConsoleSink) Seek(offset int64, whence SeekWhence) (int64, error) {
	return 0, fmt.Errorf("%w: console sink does not support seek", ErrSinkWrite)
}

// Tell implements Sink; console sinks have no addressable position.
func (s *ConsoleSink) Tell() (int64, error) {
	return 0, nil
}
