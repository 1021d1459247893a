package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/model"
)

// ErrCorrupt is returned when a frame cannot be decoded.
var ErrCorrupt = errors.New("codec: corrupt frame")

const (
	sliceMagic   = "FVSD"
	sliceVersion = 1

	flagLabels = 1 << 0
)

// Frame layout, little-endian:
//
//	magic [4]byte | version uint16 | flags uint8
//	rows uint32 | fvCols uint32 | countCols uint32
//	fisher vectors rows×fvCols float64
//	counts rows×countCols float64
//	descriptor counts rows float64
//	group ids rows×(uvarint length | bytes)
//	labels rows int64 (if flagLabels)

// MarshalSliceData encodes s into a binary frame.
func MarshalSliceData(s model.SliceData) ([]byte, error) {
	n := s.Len()
	if s.FisherVectors == nil || s.Counts == nil {
		return nil, fmt.Errorf("%w: missing fisher vectors or counts", model.ErrInvalidArgument)
	}
	fr, fc := s.FisherVectors.Dims()
	cr, cc := s.Counts.Dims()
	switch {
	case fr != n:
		return nil, &model.ShapeError{What: "fisher vectors", Expected: [2]int{n, fc}, Actual: [2]int{fr, fc}}
	case cr != n:
		return nil, &model.ShapeError{What: "counts", Expected: [2]int{n, cc}, Actual: [2]int{cr, cc}}
	case len(s.GroupIDs) != n:
		return nil, &model.ShapeError{What: "group ids", Expected: [2]int{n, 1}, Actual: [2]int{len(s.GroupIDs), 1}}
	case s.Labels != nil && len(s.Labels) != n:
		return nil, &model.ShapeError{What: "labels", Expected: [2]int{n, 1}, Actual: [2]int{len(s.Labels), 1}}
	}

	var flags uint8
	if s.Labels != nil {
		flags |= flagLabels
	}

	buf := make([]byte, 0, 19+8*(n*(fc+cc+2)))
	buf = append(buf, sliceMagic...)
	buf = binary.LittleEndian.AppendUint16(buf, sliceVersion)
	buf = append(buf, flags)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(fc))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(cc))

	for _, m := range []*mat.Dense{s.FisherVectors, s.Counts} {
		for i := 0; i < n; i++ {
			buf = appendFloats(buf, m.RawRowView(i))
		}
	}
	buf = appendFloats(buf, s.NrDescriptors)
	for _, id := range s.GroupIDs {
		buf = binary.AppendUvarint(buf, uint64(len(id)))
		buf = append(buf, id...)
	}
	if s.Labels != nil {
		for _, l := range s.Labels {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(l)))
		}
	}
	return buf, nil
}

func appendFloats(buf []byte, xs []float64) []byte {
	for _, x := range xs {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
	}
	return buf
}

// UnmarshalSliceData decodes a frame written by MarshalSliceData.
func UnmarshalSliceData(b []byte) (model.SliceData, error) {
	r := reader{buf: b}
	if string(r.bytes(len(sliceMagic))) != sliceMagic {
		return model.SliceData{}, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if v := r.uint16(); r.err == nil && v != sliceVersion {
		return model.SliceData{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	flags := r.uint8()
	n := int(r.uint32())
	fc := int(r.uint32())
	cc := int(r.uint32())
	if r.err != nil {
		return model.SliceData{}, r.err
	}
	// Reject sizes the remaining bytes cannot hold before allocating.
	if !fits(n, fc+cc+1, len(r.buf)-r.off) {
		return model.SliceData{}, fmt.Errorf("%w: truncated frame", ErrCorrupt)
	}

	s := model.SliceData{
		FisherVectors: r.dense(n, fc),
		Counts:        r.dense(n, cc),
		NrDescriptors: r.floats(n),
		GroupIDs:      make([]string, n),
	}
	for i := range s.GroupIDs {
		s.GroupIDs[i] = string(r.bytes(int(r.uvarint())))
	}
	if flags&flagLabels != 0 {
		s.Labels = make([]int, n)
		for i := range s.Labels {
			s.Labels[i] = int(int64(r.uint64()))
		}
	}
	if r.err != nil {
		return model.SliceData{}, r.err
	}
	if r.off != len(r.buf) {
		return model.SliceData{}, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(r.buf)-r.off)
	}
	return s, nil
}

// fits reports whether rows×cols float64 values fit in avail bytes.
func fits(rows, cols, avail int) bool {
	hi, words := bits.Mul64(uint64(rows), uint64(cols))
	if hi != 0 {
		return false
	}
	hi, need := bits.Mul64(words, 8)
	return hi == 0 && need <= uint64(avail)
}

// reader decodes sequentially and latches the first error.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf)-r.off {
		r.err = fmt.Errorf("%w: truncated frame", ErrCorrupt)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) uint8() uint8 {
	if b := r.bytes(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) uint16() uint16 {
	if b := r.bytes(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) uint32() uint32 {
	if b := r.bytes(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) uint64() uint64 {
	if b := r.bytes(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		r.err = fmt.Errorf("%w: bad varint", ErrCorrupt)
		return 0
	}
	r.off += n
	return v
}

func (r *reader) floats(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(r.uint64())
	}
	return out
}

func (r *reader) dense(rows, cols int) *mat.Dense {
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(rows, cols, r.floats(rows*cols))
}
