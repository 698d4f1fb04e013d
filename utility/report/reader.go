// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/devblok/d3d12vk/core/profile"
	"github.com/pierrec/lz4"
	"golang.org/x/exp/mmap"
)

// Open opens the archive read from r. It also checks that r actually
// holds an archive and returns ErrFileFormat when it does not.
func Open(r io.ReaderAt) (*Archive, error) {
	prefix := make([]byte, MagicLength+HeaderSizeNumberLength)
	if num, err := r.ReadAt(prefix, 0); num < len(prefix) {
		if err == nil || err == io.EOF {
			err = ErrFileFormat
		}
		return nil, err
	}
	if !bytes.Equal(prefix[:MagicLength], magic[:]) {
		return nil, ErrFileFormat
	}

	headerSize := binaryToInt64(prefix[MagicLength:])
	if headerSize <= 0 || headerSize > MaxHeaderSize {
		return nil, ErrFileFormat
	}
	if length, ok := readerLength(r); ok && headerSize > length-int64(len(prefix)) {
		return nil, ErrFileFormat
	}
	headerBytes := make([]byte, headerSize)
	if num, err := r.ReadAt(headerBytes, int64(len(prefix))); int64(num) < headerSize {
		if err == nil || err == io.EOF {
			err = ErrFileFormat
		}
		return nil, err
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileFormat, err)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: version %d", ErrFileFormat, header.Version)
	}

	return &Archive{
		reader:     r,
		header:     header,
		dataOffset: int64(len(prefix)) + headerSize,
	}, nil
}

// readerLength returns the total length of r when r can tell it
func readerLength(r io.ReaderAt) (int64, bool) {
	switch r := r.(type) {
	case interface{ Size() int64 }:
		return r.Size(), true
	case interface{ Len() int }:
		return int64(r.Len()), true
	}
	return 0, false
}

// OpenFile memory maps the archive at path
func OpenFile(path string) (*Archive, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	ar, err := Open(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	ar.closer = r
	return ar, nil
}

// Archive provides concurrent io for an archive, and can provide
// an io.Reader for each entry separately.
type Archive struct {
	reader     io.ReaderAt
	closer     io.Closer
	header     Header
	dataOffset int64
}

// Header returns the archive header
func (a *Archive) Header() Header {
	return a.header
}

// Entries lists the entries in archive order
func (a *Archive) Entries() []IndexEntry {
	return a.header.Index
}

func (a *Archive) entry(name string) (IndexEntry, bool) {
	for _, e := range a.header.Index {
		if e.Name == name {
			return e, true
		}
	}
	return IndexEntry{}, false
}

// Open returns a reader of the decompressed contents of an entry
func (a *Archive) Open(name string) (io.Reader, error) {
	e, ok := a.entry(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, name)
	}
	section := io.NewSectionReader(a.reader, a.dataOffset+e.Offset, e.CompressedSize)
	return lz4.NewReader(section), nil
}

// ReadAll returns the entire contents of an entry
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", name, err)
	}
	return data, nil
}

// Profile decodes a profile entry
func (a *Archive) Profile(name string) (profile.Profile, error) {
	r, err := a.Open(name)
	if err != nil {
		return profile.Profile{}, err
	}
	return profile.Load(r)
}

// Close releases the memory mapping of archives opened with OpenFile
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
