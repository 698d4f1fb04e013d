// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/devblok/d3d12vk/core/profile"
	"github.com/pierrec/lz4"
	log "github.com/sirupsen/logrus"
)

// NewBuilder creates a new Builder. Do not fill the Index in
// the header, it will be overwritten anyway.
func NewBuilder(header Header) (*Builder, error) {
	temp, err := os.MkdirTemp("", "reportBuilder")
	if err != nil {
		return nil, err
	}
	if header.Version == 0 {
		header.Version = Version
	}
	return &Builder{
		tempDir: temp,
		header:  header,
	}, nil
}

type tempFile struct {

	// Name is the name of the entry
	Name string

	// TempName is the temporary name given by the Builder
	TempName string

	// Size in uncompressed state
	Size int64

	Compressed int64
}

// Builder creates archives. Archives are versioned and cannot be
// appended to. Entries given to Add are compressed into a temporary
// directory and bundled together by WriteTo. Close removes the
// temporary directory.
type Builder struct {
	tempDir string
	header  Header

	mutex    sync.Mutex
	files    []tempFile
	sequence int
}

// Add compresses data into the builder under name. It blocks until
// compression finishes and is safe to use from several goroutines.
func (b *Builder) Add(name string, data []byte) error {
	b.mutex.Lock()
	for _, f := range b.files {
		if f.Name == name {
			b.mutex.Unlock()
			return fmt.Errorf("duplicate entry %q", name)
		}
	}
	b.sequence++
	tempName := strconv.Itoa(b.sequence)
	b.mutex.Unlock()

	f, err := os.Create(filepath.Join(b.tempDir, tempName))
	if err != nil {
		return err
	}
	defer f.Close()

	writer := lz4.NewWriter(f)
	written, err := io.Copy(writer, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.files = append(b.files, tempFile{
		Name:       name,
		TempName:   tempName,
		Size:       written,
		Compressed: info.Size(),
	})
	log.WithFields(log.Fields{
		"entry":      name,
		"size":       written,
		"compressed": info.Size(),
	}).Debug("added report entry")
	return nil
}

// AddProfile stores p as a JSON entry under name
func (b *Builder) AddProfile(name string, p profile.Profile) error {
	var buf bytes.Buffer
	if err := p.Save(&buf); err != nil {
		return err
	}
	return b.Add(name, buf.Bytes())
}

// Len returns the number of entries added so far
func (b *Builder) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.files)
}

// WriteTo bundles every entry added to the Builder into an archive.
// Entries are written in the order they finished compressing.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	header := b.header
	header.Index = nil
	var offset int64
	for _, f := range b.files {
		header.Index = append(header.Index, IndexEntry{
			Name:           f.Name,
			Offset:         offset,
			Size:           f.Size,
			CompressedSize: f.Compressed,
		})
		offset += f.Compressed
	}

	rawHeader, err := gobEncode(header)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, chunk := range [][]byte{magic[:], int64ToBinary(int64(len(rawHeader))), rawHeader} {
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	for _, f := range b.files {
		n, err := b.copyEntry(w, f)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (b *Builder) copyEntry(w io.Writer, f tempFile) (int64, error) {
	in, err := os.Open(filepath.Join(b.tempDir, f.TempName))
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return io.Copy(w, in)
}

// Close removes the temporary files of the builder
func (b *Builder) Close() error {
	return os.RemoveAll(b.tempDir)
}
