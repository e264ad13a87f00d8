package io

import (
	goio "io"
	"os"

	"github.com/cockroachdb/errors"
)

var ErrNotOpened = errors.New("file not opened")

// File is positional access to a dump on disk.
type File struct {
	path   string
	file   *os.File
	opened bool
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Open opens the file read-only or for writing, creating it when missing.
// A truncating open discards any previous content.
func (f *File) Open(readOnly bool, truncate bool) (topErr error) {

	var perm os.FileMode = 0644

	switch {
	case readOnly:
		f.file, topErr = os.OpenFile(f.path, os.O_RDONLY, perm)
	case truncate:
		f.file, topErr = os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	default:
		f.file, topErr = os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY, perm)
	}

	if topErr != nil {
		return errors.Wrapf(topErr, "open %s", f.path)
	}

	f.opened = true
	return nil
}

func (f *File) Close() error {
	if !f.opened {
		return nil
	}
	f.opened = false

	return f.file.Close()
}

func (f *File) Size() (int64, error) {
	if !f.opened {
		return 0, ErrNotOpened
	}

	st, err := f.file.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "stat %s", f.path)
	}
	return st.Size(), nil
}

// ReadAt fills out completely or fails.
func (f *File) ReadAt(out []byte, off int64) error {
	if !f.opened {
		return ErrNotOpened
	}

	readBytes, err := f.file.ReadAt(out, off)
	if readBytes != len(out) {
		if err == nil {
			err = errors.New("read bytes mismatch")
		}
		return errors.Wrapf(err, "read %d bytes at %d from %s (got %d)", len(out), off, f.path, readBytes)
	}

	return nil
}

func (f *File) WriteAt(in []byte, off int64) error {
	if !f.opened {
		return ErrNotOpened
	}

	writtenBytes, err := f.file.WriteAt(in, off)
	if writtenBytes != len(in) {
		if err == nil {
			err = errors.New("written bytes mismatch")
		}
		return errors.Wrapf(err, "write %d bytes at %d to %s", len(in), off, f.path)
	}

	return nil
}

// FillZeroes writes size zero bytes at offset.
func (f *File) FillZeroes(offset int64, size int) error {
	return f.WriteAt(make([]byte, size), offset)
}

func (f *File) Sync() error {
	if !f.opened {
		return ErrNotOpened
	}
	return f.file.Sync()
}

// Section exposes n bytes starting at off as a sequential reader.
func (f *File) Section(off, n int64) (*goio.SectionReader, error) {
	if !f.opened {
		return nil, ErrNotOpened
	}
	return goio.NewSectionReader(f.file, off, n), nil
}
