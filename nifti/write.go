package nifti

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// New returns an empty label volume with the given dimensions and voxel
// spacing. The sform places voxel (0,0,0) at origin.
func New(dims [3]int, spacing, origin [3]float64) *Volume {
	v := &Volume{
		Dims:   dims,
		Labels: make([]int32, dims[0]*dims[1]*dims[2]),
	}
	h := &v.Header
	h.SizeofHdr = headerSize
	h.Dim = [8]int16{3, int16(dims[0]), int16(dims[1]), int16(dims[2]), 1, 1, 1, 1}
	h.Pixdim = [8]float32{1, float32(spacing[0]), float32(spacing[1]), float32(spacing[2]), 1, 1, 1, 1}
	h.VoxOffset = dataOffset
	h.SclSlope = 1
	h.XYZTUnits = 2 // millimeters
	h.SformCode = 1
	h.SrowX = [4]float32{float32(spacing[0]), 0, 0, float32(origin[0])}
	h.SrowY = [4]float32{0, float32(spacing[1]), 0, float32(origin[1])}
	h.SrowZ = [4]float32{0, 0, float32(spacing[2]), float32(origin[2])}
	copy(h.Magic[:], "n+1\x00")
	return v
}

// Set sets voxel (i,j,k) to label.
func (v *Volume) Set(i, j, k int, label int32) {
	v.Labels[v.Index(i, j, k)] = label
}

// WriteFile writes v to filename, gzip-compressed when the name ends in ".gz".
// It is used to build datasets; reading goes through ReadFile.
func WriteFile(filename string, v *Volume) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	var w io.Writer = f
	var zw *gzip.Writer
	if strings.HasSuffix(filename, ".gz") {
		zw = gzip.NewWriter(f)
		w = zw
	}

	if err := Write(w, v); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %v", filename)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			f.Close()
			return errors.Wrap(err, "gzip")
		}
	}
	return f.Close()
}

// Write encodes v as little-endian NIfTI-1 using the smallest of uint8,
// int16 and int32 that holds every label.
func Write(w io.Writer, v *Volume) error {
	if len(v.Labels) != v.NumVoxels() {
		return errors.Errorf("label count %v does not match dims %v", len(v.Labels), v.Dims)
	}

	h := v.Header
	h.SizeofHdr = headerSize
	h.VoxOffset = dataOffset
	h.SclSlope, h.SclInter = 1, 0
	h.Datatype, h.Bitpix = storageType(v.Labels)
	if string(h.Magic[:3]) != "n+1" {
		copy(h.Magic[:], "n+1\x00")
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return errors.Wrap(err, "header")
	}
	if _, err := bw.Write([]byte{0, 0, 0, 0}); err != nil {
		return err
	}

	buf := make([]byte, 4)
	for _, val := range v.Labels {
		var b []byte
		switch h.Datatype {
		case DTUint8:
			b = append(buf[:0], uint8(val))
		case DTInt16:
			b = binary.LittleEndian.AppendUint16(buf[:0], uint16(int16(val)))
		default:
			b = binary.LittleEndian.AppendUint32(buf[:0], uint32(val))
		}
		if _, err := bw.Write(b); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func storageType(labels []int32) (datatype, bitpix int16) {
	datatype, bitpix = DTUint8, 8
	for _, val := range labels {
		if val < math.MinInt16 || val > math.MaxInt16 {
			return DTInt32, 32
		}
		if val < 0 || val > math.MaxUint8 {
			datatype, bitpix = DTInt16, 16
		}
	}
	return datatype, bitpix
}
