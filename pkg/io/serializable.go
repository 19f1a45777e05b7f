/*
Package io provides compact binary encoding used for persisted records.
*/
package io

// Serializable defines the binary encoding/decoding interface. Errors are
// returned via BinReader/BinWriter Err field. These functions must have safe
// behavior when the passed BinReader/BinWriter with Err is already set. Invocations
// to these functions tend to be nested, with this mechanism only the top-level
// caller should handle an error once and all the other code should just not
// panic while there is an error.
type Serializable interface {
	EncodeBinary(*BinWriter)
	DecodeBinary(*BinReader)
}

// ToBytes serializes s into a fresh buffer.
func ToBytes(s Serializable) ([]byte, error) {
	w := NewBufBinWriter()
	s.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// FromBytes deserializes data into s. All of data must be consumed.
func FromBytes(data []byte, s Serializable) error {
	r := NewBinReaderFromBuf(data)
	s.DecodeBinary(r)
	if r.Err != nil {
		return r.Err
	}
	var b [1]byte
	r.ReadBytes(b[:])
	if r.Err == nil {
		return ErrTrailingData
	}
	return nil
}
