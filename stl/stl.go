// Package stl writes surface meshes as binary or ASCII STL files and reads
// them back.
package stl

import (
	"encoding/binary"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/gmlewis/segmesh/surface"
)

const (
	headerSize = 80
	triSize    = 50
	bufSize    = 10000
)

// Client is a streaming binary STL file writer client.
type Client struct {
	wg sync.WaitGroup // ensures file is closed
	ch chan Tri

	mu  sync.RWMutex
	err error
}

// Tri represents an STL triangle.
type Tri struct {
	// Normal plus three vertex triplets: [3]float{x,y,z}
	N, V1, V2, V3 [3]float32
	_             uint16 // unused attribute byte count
}

// NewTri returns the STL triangle with normal n and vertices a, b, c.
func NewTri(n, a, b, c mgl64.Vec3) Tri {
	return Tri{N: f32(n), V1: f32(a), V2: f32(b), V3: f32(c)}
}

func f32(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

// Create creates a new streaming binary STL file writer. The solid name
// is stored in the file header.
func Create(filename, name string) (*Client, error) {
	out, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	c, err := newClient(out, name)
	if err != nil {
		out.Close()
		return nil, err
	}
	return c, nil
}

func newClient(out writeSeekCloser, name string) (*Client, error) {
	// A binary header must not start with "solid" or readers take it for ASCII.
	header := struct {
		Text [headerSize]uint8
		_    uint32 // count will be overwritten on channel close.
	}{}
	copy(header.Text[:], "segmesh "+strings.TrimPrefix(name, "solid"))
	if err := binary.Write(out, binary.LittleEndian, &header); err != nil {
		return nil, errors.Wrap(err, "write header")
	}

	c := &Client{ch: make(chan Tri, bufSize)}
	c.start(out)
	return c, nil
}

func (c *Client) start(out writeSeekCloser) {
	c.wg.Add(1)
	go func() {
		err := writer(out, c.ch)
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		c.wg.Done()
	}()
}

// Write writes a triangle to the STL file.
func (c *Client) Write(t *Tri) error {
	c.ch <- *t
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// WriteMesh writes every triangle of m with its face normal.
func (c *Client) WriteMesh(m *surface.Mesh) error {
	for n := 0; n < m.NumTriangles(); n++ {
		a, b, v := m.Triangle(n)
		t := NewTri(m.FaceNormal(n), a, b, v)
		if err := c.Write(&t); err != nil {
			return err
		}
	}
	return nil
}

// Close finalizes the STL file.
func (c *Client) Close() error {
	close(c.ch)
	c.wg.Wait()
	return c.err
}

type writeSeekCloser interface {
	io.Writer
	io.Seeker
	io.Closer
}

// writer consumes the channel until it is closed, even after a failed
// write, so that senders never block.
func writer(out writeSeekCloser, ch <-chan Tri) error {
	var count uint32
	var err error
	for t := range ch {
		if err != nil {
			continue
		}
		if e := binary.Write(out, binary.LittleEndian, &t); e != nil {
			err = errors.Wrapf(e, "write triangle %v", count)
			continue
		}
		count++
	}
	if err != nil {
		out.Close()
		return err
	}

	if _, err := out.Seek(headerSize, io.SeekStart); err != nil {
		out.Close()
		return errors.Wrap(err, "seek")
	}

	if err := binary.Write(out, binary.LittleEndian, &count); err != nil {
		out.Close()
		return errors.Wrapf(err, "write count %v", count)
	}

	return out.Close()
}

// WriteFile writes m to filename as a binary STL file.
func WriteFile(filename string, m *surface.Mesh) error {
	c, err := Create(filename, m.Name)
	if err != nil {
		return err
	}
	if err := c.WriteMesh(m); err != nil {
		c.Close()
		return err
	}
	return c.Close()
}
