// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package report_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/devblok/d3d12vk/core/profile"
	"github.com/devblok/d3d12vk/utility/report"
	qt "github.com/frankban/quicktest"
)

func build(c *qt.C, entries map[string]profile.Profile) []byte {
	builder, err := report.NewBuilder(report.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Backend:     "profile",
	})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	for name, p := range entries {
		c.Assert(builder.AddProfile(name, p), qt.IsNil)
	}

	var buf bytes.Buffer
	written, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	c.Assert(written, qt.Equals, int64(buf.Len()))
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	c := qt.New(t)
	data := build(c, map[string]profile.Profile{
		"desktop": profile.Desktop(),
		"laptop":  profile.Laptop(),
	})

	ar, err := report.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Header().Author, qt.Equals, "devblok")
	c.Assert(ar.Header().Version, qt.Equals, int64(report.Version))
	c.Assert(ar.Entries(), qt.HasLen, 2)

	p, err := ar.Profile("laptop")
	c.Assert(err, qt.IsNil)
	c.Assert(p, qt.DeepEquals, profile.Laptop())

	raw, err := ar.ReadAll("desktop")
	c.Assert(err, qt.IsNil)
	var expected bytes.Buffer
	c.Assert(profile.Desktop().Save(&expected), qt.IsNil)
	c.Assert(string(raw), qt.Equals, expected.String())

	_, err = ar.ReadAll("software")
	c.Assert(errors.Is(err, report.ErrEntryNotFound), qt.IsTrue)
}

func TestOpenRejectsOtherFiles(t *testing.T) {
	c := qt.New(t)
	data := build(c, map[string]profile.Profile{"desktop": profile.Desktop()})

	for _, bad := range [][]byte{
		nil,
		[]byte("KAR\x00"),
		append([]byte("PK\x03\x04"), data[4:]...),
		data[:20],
		append([]byte("DRP\x00"), 0, 0, 0, 0, 0, 0, 0, 0x40),
		append([]byte("DRP\x00"), 0xff, 0xff, 0, 0, 0, 0, 0, 0),
	} {
		_, err := report.Open(bytes.NewReader(bad))
		c.Assert(errors.Is(err, report.ErrFileFormat), qt.IsTrue, qt.Commentf("input %q", bad))
	}
}

func TestOpenFileMemoryMapped(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "profiles.drp")
	c.Assert(os.WriteFile(path, build(c, map[string]profile.Profile{"software": profile.Software()}), 0o644), qt.IsNil)

	ar, err := report.OpenFile(path)
	c.Assert(err, qt.IsNil)
	defer ar.Close()

	p, err := ar.Profile("software")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Adapters[0].Properties.Name, qt.Equals, "Software Rasterizer")

	_, err = report.OpenFile(filepath.Join(c.TempDir(), "missing.drp"))
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestConcurrentAdd(t *testing.T) {
	c := qt.New(t)
	builder, err := report.NewBuilder(report.Header{Author: "devblok"})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := profile.Desktop()
			p.Name = fmt.Sprintf("desktop%d", i)
			if err := builder.AddProfile(p.Name, p); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	c.Assert(builder.Len(), qt.Equals, 8)
	c.Assert(builder.Add("desktop3", []byte("{}")), qt.ErrorMatches, `duplicate entry "desktop3"`)

	var buf bytes.Buffer
	_, err = builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)

	ar, err := report.Open(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("desktop%d", i)
		p, err := ar.Profile(name)
		c.Assert(err, qt.IsNil)
		c.Assert(p.Name, qt.Equals, name)
	}
}
