package io

import (
	"log/slog"
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// DumpValues writes arr to path as raw host-order values, replacing the file.
func DumpValues[T ~float32 | ~float64 | ~int32 | ~int64 | ~uint32 | ~uint64](path string, arr []T) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "dump values to %s", path)
	}
	defer f.Close()

	if len(arr) == 0 {
		return nil
	}

	// Reinterpret array as byte slice
	var zero T
	byteLen := len(arr) * int(unsafe.Sizeof(zero))
	b := unsafe.Slice((*byte)(unsafe.Pointer(&arr[0])), byteLen)

	writtenBytes, err := f.Write(b)

	slog.Info("values dumped", "bytes", writtenBytes, "path", path)

	return err
}
