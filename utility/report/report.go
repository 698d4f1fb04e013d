// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package report stores captured adapter profiles in an lz4 backed
// archive. The archive itself is not compressed, every entry is
// compressed on its own, and the index sits in front of the data so
// entries can be located without scanning. Archives are designed to be
// memory mapped and can be read from concurrently.
package report

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
)

// package errors
var (
	ErrFileFormat    = errors.New("corrupted or not a report archive")
	ErrEntryNotFound = errors.New("entry not found")
)

// Sizes relevant to the header of file
const (
	MagicLength            = 4
	HeaderSizeNumberLength = 8

	// MaxHeaderSize bounds the header of archives read from readers
	// that cannot report their length
	MaxHeaderSize = 64 << 20
)

// Version is written into every new archive
const Version = 1

var magic = [MagicLength]byte{'D', 'R', 'P', '\x00'}

// IndexEntry is info for one entry in the archive index.
// Offsets are relative to the end of the header.
type IndexEntry struct {
	Name           string
	Offset         int64
	Size           int64
	CompressedSize int64
}

// Header is the file header of report archives.
type Header struct {
	Author      string
	DateCreated int64
	Version     int64
	Backend     string
	Index       []IndexEntry
}

func int64ToBinary(num int64) []byte {
	bts := make([]byte, HeaderSizeNumberLength)
	binary.LittleEndian.PutUint64(bts, uint64(num))
	return bts
}

func binaryToInt64(bts []byte) int64 {
	return int64(binary.LittleEndian.Uint64(bts))
}

func gobEncode(data interface{}) ([]byte, error) {
	var encoded bytes.Buffer
	enc := gob.NewEncoder(&encoded)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return encoded.Bytes(), nil
}

func gobDecode(obj interface{}, bts []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(bts))
	return dec.Decode(obj)
}
