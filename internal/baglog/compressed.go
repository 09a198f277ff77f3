package baglog

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Message encodings of a channel.
const (
	EncodingROS1 = "ros1"
	EncodingCDR  = "cdr"
)

// CompressedImageSchemas are the schema names of camera channels.
var CompressedImageSchemas = map[string]bool{
	"sensor_msgs/CompressedImage":     true,
	"sensor_msgs/msg/CompressedImage": true,
}

var errShortMessage = errors.New("message truncated")

// Stamp is a ROS time.
type Stamp struct {
	Sec  uint32
	Nsec uint32
}

// Nanos returns the stamp in nanoseconds.
func (s Stamp) Nanos() uint64 { return uint64(s.Sec)*1_000_000_000 + uint64(s.Nsec) }

// CompressedImage is a sensor_msgs/CompressedImage.
type CompressedImage struct {
	Seq     uint32 // ros1 only
	Stamp   Stamp
	FrameID string
	Format  string
	Data    []byte
}

// DecodeCompressedImage parses a serialized CompressedImage in the given
// message encoding.
func DecodeCompressedImage(encoding string, b []byte) (*CompressedImage, error) {
	switch encoding {
	case EncodingROS1:
		return decodeROS1(b)
	case EncodingCDR:
		return decodeCDR(b)
	}
	return nil, fmt.Errorf("unsupported message encoding '%s'", encoding)
}

// EncodeCompressedImage serializes img in the given message encoding.
func EncodeCompressedImage(encoding string, img *CompressedImage) ([]byte, error) {
	switch encoding {
	case EncodingROS1:
		return encodeROS1(img), nil
	case EncodingCDR:
		return encodeCDR(img), nil
	}
	return nil, fmt.Errorf("unsupported message encoding '%s'", encoding)
}

// ros1: little endian, no alignment, strings and arrays carry a uint32 length.

func decodeROS1(b []byte) (*CompressedImage, error) {
	r := &ros1Reader{buf: b}
	img := &CompressedImage{}
	img.Seq = r.u32()
	img.Stamp.Sec = r.u32()
	img.Stamp.Nsec = r.u32()
	img.FrameID = string(r.bytes())
	img.Format = string(r.bytes())
	img.Data = r.bytes()
	if r.err != nil {
		return nil, fmt.Errorf("failed to decode ros1 CompressedImage: %w", r.err)
	}
	return img, nil
}

func encodeROS1(img *CompressedImage) []byte {
	out := make([]byte, 0, 24+len(img.FrameID)+len(img.Format)+len(img.Data))
	out = binary.LittleEndian.AppendUint32(out, img.Seq)
	out = binary.LittleEndian.AppendUint32(out, img.Stamp.Sec)
	out = binary.LittleEndian.AppendUint32(out, img.Stamp.Nsec)
	for _, field := range [][]byte{[]byte(img.FrameID), []byte(img.Format), img.Data} {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(field)))
		out = append(out, field...)
	}
	return out
}

type ros1Reader struct {
	buf []byte
	off int
	err error
}

func (r *ros1Reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.buf) {
		r.err = errShortMessage
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *ros1Reader) bytes() []byte {
	n := int(r.u32())
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = errShortMessage
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out
}

// cdr: a 4 byte encapsulation header, then fields aligned to their size
// relative to the end of the header. Strings are NUL terminated and their
// length includes the terminator.

var (
	cdrLE = [4]byte{0x00, 0x01, 0x00, 0x00}
	cdrBE = [4]byte{0x00, 0x00, 0x00, 0x00}
)

func decodeCDR(b []byte) (*CompressedImage, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("failed to decode cdr CompressedImage: %w", errShortMessage)
	}
	r := &cdrReader{buf: b[4:], order: binary.LittleEndian}
	switch b[1] {
	case cdrLE[1]:
	case cdrBE[1]:
		r.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("unsupported cdr encapsulation %#x", b[:2])
	}

	img := &CompressedImage{}
	img.Stamp.Sec = r.u32()
	img.Stamp.Nsec = r.u32()
	img.FrameID = r.str()
	img.Format = r.str()
	img.Data = r.seq()
	if r.err != nil {
		return nil, fmt.Errorf("failed to decode cdr CompressedImage: %w", r.err)
	}
	return img, nil
}

func encodeCDR(img *CompressedImage) []byte {
	w := &cdrWriter{buf: append([]byte(nil), cdrLE[:]...)}
	w.u32(img.Stamp.Sec)
	w.u32(img.Stamp.Nsec)
	w.str(img.FrameID)
	w.str(img.Format)
	w.u32(uint32(len(img.Data)))
	w.buf = append(w.buf, img.Data...)
	return w.buf
}

type cdrReader struct {
	buf   []byte
	off   int
	order binary.ByteOrder
	err   error
}

func (r *cdrReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	r.off = (r.off + 3) &^ 3
	if r.off+4 > len(r.buf) {
		r.err = errShortMessage
		return 0
	}
	v := r.order.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *cdrReader) seq() []byte {
	n := int(r.u32())
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = errShortMessage
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out
}

func (r *cdrReader) str() string {
	b := r.seq()
	if len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}

type cdrWriter struct {
	buf []byte
}

func (w *cdrWriter) u32(v uint32) {
	for (len(w.buf)-4)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *cdrWriter) str(s string) {
	w.u32(uint32(len(s) + 1))
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}
