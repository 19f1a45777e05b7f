package io

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxArraySize is the maximum size of an array which can be decoded.
const MaxArraySize = 0x1000000

// BinReader is a convenient wrapper around an io.Reader and err object.
// Used to simplify error handling when reading into a struct with many fields.
type BinReader struct {
	r   io.Reader
	uv  [8]byte
	Err error
}

// NewBinReaderFromIO makes a BinReader from io.Reader.
func NewBinReaderFromIO(ior io.Reader) *BinReader {
	return &BinReader{r: ior}
}

// NewBinReaderFromBuf makes a BinReader from a byte buffer.
func NewBinReaderFromBuf(b []byte) *BinReader {
	return NewBinReaderFromIO(bytes.NewReader(b))
}

// ReadU64LE reads a little-endian encoded uint64 value from the underlying
// io.Reader. On read failures it returns zero.
func (r *BinReader) ReadU64LE() uint64 {
	r.ReadBytes(r.uv[:8])
	if r.Err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(r.uv[:8])
}

// ReadB reads a byte from the underlying io.Reader. On read failures it
// returns zero.
func (r *BinReader) ReadB() byte {
	r.ReadBytes(r.uv[:1])
	if r.Err != nil {
		return 0
	}
	return r.uv[0]
}

// ReadBool reads a boolean value encoded in a zero/non-zero byte from the
// underlying io.Reader. On read failures it returns false.
func (r *BinReader) ReadBool() bool {
	return r.ReadB() != 0
}

// ReadArray reads an array into arr which must be a pointer to a slice of
// Serializable values.
func ReadArray[E any, PE interface {
	*E
	Serializable
}](r *BinReader, maxSize ...int) []E {
	ms := MaxArraySize
	if len(maxSize) != 0 {
		ms = maxSize[0]
	}
	l := int(r.ReadVarUint())
	if r.Err != nil {
		return nil
	}
	if l > ms {
		r.Err = fmt.Errorf("array is too big (%d)", l)
		return nil
	}
	arr := make([]E, l)
	for i := 0; i < l && r.Err == nil; i++ {
		PE(&arr[i]).DecodeBinary(r)
	}
	return arr
}

// ReadVarUint reads a variable-length-encoded integer from the
// underlying reader.
func (r *BinReader) ReadVarUint() uint64 {
	if r.Err != nil {
		return 0
	}

	var b = r.ReadB()

	if b == 0xfd {
		r.ReadBytes(r.uv[:2])
		return uint64(binary.LittleEndian.Uint16(r.uv[:2]))
	}
	if b == 0xfe {
		r.ReadBytes(r.uv[:4])
		return uint64(binary.LittleEndian.Uint32(r.uv[:4]))
	}
	if b == 0xff {
		return r.ReadU64LE()
	}

	return uint64(b)
}

// ReadVarBytes reads the next set of bytes from the underlying reader.
// ReadVarUInt() is used to determine how large that slice is.
func (r *BinReader) ReadVarBytes(maxSize ...int) []byte {
	n := r.ReadVarUint()
	ms := MaxArraySize
	if len(maxSize) != 0 {
		ms = maxSize[0]
	}
	if n > uint64(ms) {
		r.Err = fmt.Errorf("byte-slice is too big (%d)", n)
		return nil
	}
	b := make([]byte, n)
	r.ReadBytes(b)
	return b
}

// ReadBytes copies a fixed-size buffer from the reader to the provided slice.
func (r *BinReader) ReadBytes(buf []byte) {
	if r.Err != nil {
		return
	}

	_, r.Err = io.ReadFull(r.r, buf)
}

// ReadString calls ReadVarBytes and casts the results as a string.
func (r *BinReader) ReadString(maxSize ...int) string {
	b := r.ReadVarBytes(maxSize...)
	return string(b)
}

// ErrTrailingData is returned by FromBytes when the data is not fully consumed.
var ErrTrailingData = errors.New("trailing data")
