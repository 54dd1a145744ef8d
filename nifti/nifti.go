// Package nifti reads and writes single-file NIfTI-1 label volumes (.nii
// and .nii.gz).
package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const (
	headerSize = 348
	dataOffset = 352 // header plus the 4-byte extension flag

	// MaxVoxels bounds the size of a volume ReadFile will load.
	MaxVoxels = 1 << 30

	maxDeflateRatio = 1032
)

// NIfTI-1 datatype codes.
const (
	DTUint8   = 2
	DTInt16   = 4
	DTInt32   = 8
	DTFloat32 = 16
	DTFloat64 = 64
	DTInt8    = 256
	DTUint16  = 512
	DTUint32  = 768
	DTInt64   = 1024
	DTUint64  = 1280
)

// Header is the fixed 348-byte NIfTI-1 header.
// Field order and sizes match the on-disk layout.
type Header struct {
	SizeofHdr     int32
	_             [10]byte // data_type
	_             [18]byte // db_name
	_             int32    // extents
	_             int16    // session_error
	_             byte     // regular
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XYZTUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	TOffset       float32
	_             int32 // glmax
	_             int32 // glmin
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

// Volume is a 3D label volume. Labels are stored with i varying fastest,
// then j, then k; voxel values are rounded to the nearest integer label.
type Volume struct {
	Header Header
	Dims   [3]int
	Labels []int32
}

// ReadFile reads the first 3D frame of a NIfTI-1 label volume from disk.
// The header is checked against the file size before any voxel data is
// loaded, so a corrupt or truncated file returns an error.
func ReadFile(filename string) (*Volume, error) {
	h, gz, err := readHeader(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read %v", filename)
	}

	v := &Volume{Header: *h}
	if err := v.setDims(); err != nil {
		return nil, errors.Wrapf(err, "read %v", filename)
	}
	if err := checkSize(filename, gz, h, v.NumVoxels()); err != nil {
		return nil, errors.Wrapf(err, "read %v", filename)
	}

	img, err := loadImage(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read %v", filename)
	}

	v.Labels = make([]int32, v.NumVoxels())
	for k := 0; k < v.Dims[2]; k++ {
		for j := 0; j < v.Dims[1]; j++ {
			for i := 0; i < v.Dims[0]; i++ {
				val := img.GetAt(uint32(i), uint32(j), uint32(k), 0)
				v.Labels[v.Index(i, j, k)] = int32(math.Round(float64(val)))
			}
		}
	}
	return v, nil
}

// ReadHeader decodes the 348-byte header of filename in either byte order.
// Gzip compression is detected from the content, not the file name.
func ReadHeader(filename string) (*Header, error) {
	h, _, err := readHeader(filename)
	return h, err
}

func readHeader(filename string) (h *Header, gz bool, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz = true
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, gz, errors.Wrap(err, "gzip")
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
	}

	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, gz, errors.Wrap(err, "header")
	}

	var order binary.ByteOrder = binary.LittleEndian
	switch {
	case binary.LittleEndian.Uint32(raw) == headerSize:
	case binary.BigEndian.Uint32(raw) == headerSize:
		order = binary.BigEndian
	default:
		return nil, gz, errors.Errorf("not a NIfTI-1 header (sizeof_hdr=%v)", binary.LittleEndian.Uint32(raw))
	}

	h = &Header{}
	if err := binary.Read(bytes.NewReader(raw), order, h); err != nil {
		return nil, gz, errors.Wrap(err, "decode header")
	}
	if m := string(h.Magic[:3]); m != "n+1" {
		return nil, gz, errors.Errorf("unsupported magic %q (only single-file NIfTI-1 is supported)", m)
	}
	return h, gz, nil
}

func (v *Volume) setDims() error {
	h := &v.Header
	ndim := int(h.Dim[0])
	if ndim < 1 || ndim > 7 {
		return errors.Errorf("invalid dim[0]=%v", ndim)
	}
	for i := 0; i < 3; i++ {
		v.Dims[i] = 1
		if i < ndim {
			v.Dims[i] = int(h.Dim[i+1])
		}
		if v.Dims[i] < 1 {
			return errors.Errorf("invalid dim[%v]=%v", i+1, v.Dims[i])
		}
	}
	if n := v.NumVoxels(); n > MaxVoxels {
		return errors.Errorf("%v voxels exceeds the limit of %v", n, MaxVoxels)
	}
	return nil
}

// checkSize rejects headers that describe more voxel data than filename
// can hold. Deflate cannot expand input by more than maxDeflateRatio, which
// bounds gzip files without decompressing them.
func checkSize(filename string, gz bool, h *Header, n int) error {
	size, ok := bytesPerVoxel[h.Datatype]
	if !ok {
		return errors.Errorf("unsupported datatype %v", h.Datatype)
	}
	fi, err := os.Stat(filename)
	if err != nil {
		return err
	}

	offset := int64(h.VoxOffset)
	if offset < headerSize {
		offset = dataOffset
	}
	need := offset + int64(n)*int64(size)
	have := fi.Size()
	if gz {
		have *= maxDeflateRatio
	}
	if need > have {
		return errors.Wrapf(io.ErrUnexpectedEOF, "header describes %v bytes but the file holds at most %v", need, have)
	}
	return nil
}

var bytesPerVoxel = map[int16]int{
	DTUint8:   1,
	DTInt8:    1,
	DTInt16:   2,
	DTUint16:  2,
	DTInt32:   4,
	DTUint32:  4,
	DTFloat32: 4,
	DTInt64:   8,
	DTUint64:  8,
	DTFloat64: 8,
}

// NumVoxels returns the number of voxels in the 3D volume.
func (v *Volume) NumVoxels() int {
	return v.Dims[0] * v.Dims[1] * v.Dims[2]
}

// Index returns the offset of voxel (i,j,k) in Labels.
func (v *Volume) Index(i, j, k int) int {
	return i + v.Dims[0]*(j+v.Dims[1]*k)
}

// At returns the label of voxel (i,j,k), or 0 outside the volume.
func (v *Volume) At(i, j, k int) int32 {
	if i < 0 || j < 0 || k < 0 || i >= v.Dims[0] || j >= v.Dims[1] || k >= v.Dims[2] {
		return 0
	}
	return v.Labels[v.Index(i, j, k)]
}

// Spacing returns the voxel size along i, j and k.
func (v *Volume) Spacing() [3]float64 {
	p := v.Header.Pixdim
	return [3]float64{float64(p[1]), float64(p[2]), float64(p[3])}
}

// Affine returns the voxel (i,j,k) to world (RAS) transform. The sform is
// preferred over the qform; with neither set, only the voxel spacing is
// applied.
func (v *Volume) Affine() mgl64.Mat4 {
	h := &v.Header
	switch {
	case h.SformCode > 0:
		return mgl64.Mat4FromRows(
			vec4(h.SrowX),
			vec4(h.SrowY),
			vec4(h.SrowZ),
			mgl64.Vec4{0, 0, 0, 1},
		)
	case h.QformCode > 0:
		b, c, d := float64(h.QuaternB), float64(h.QuaternC), float64(h.QuaternD)
		a := 1 - (b*b + c*c + d*d)
		if a < 1e-7 {
			// Special case: 180 degree rotation.
			a = 0
			norm := math.Sqrt(b*b + c*c + d*d)
			b, c, d = b/norm, c/norm, d/norm
		} else {
			a = math.Sqrt(a)
		}
		qfac := float64(h.Pixdim[0])
		if qfac == 0 {
			qfac = 1
		}
		sp := v.Spacing()
		rot := mgl64.Quat{W: a, V: mgl64.Vec3{b, c, d}}.Mat4()
		return mgl64.Translate3D(float64(h.QoffsetX), float64(h.QoffsetY), float64(h.QoffsetZ)).
			Mul4(rot).
			Mul4(mgl64.Scale3D(sp[0], sp[1], qfac*sp[2]))
	}
	sp := v.Spacing()
	return mgl64.Scale3D(sp[0], sp[1], sp[2])
}

func vec4(row [4]float32) mgl64.Vec4 {
	return mgl64.Vec4{float64(row[0]), float64(row[1]), float64(row[2]), float64(row[3])}
}
