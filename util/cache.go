// util/cache.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeObject writes obj to w as zstd-compressed msgpack.
func EncodeObject(w io.Writer, obj any) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(zw).Encode(obj); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// DecodeObject is the inverse of EncodeObject.
func DecodeObject(r io.Reader, obj any) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()

	return msgpack.NewDecoder(zr).Decode(obj)
}

// StoreObject encodes obj to the file at path, creating any intermediate
// directories.
func StoreObject(path string, obj any) error {
	return WriteFileAtomic(path, func(w io.Writer) error { return EncodeObject(w, obj) })
}

// WriteFileAtomic calls write with a temporary file next to path and
// renames it to path on success so that a reader never sees a partial
// file.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// RetrieveObject decodes the object stored at path into obj and returns
// the file's modification time.
func RetrieveObject(path string, obj any) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return time.Time{}, err
	}

	return fi.ModTime(), DecodeObject(f, obj)
}
