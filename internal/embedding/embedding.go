// Package embedding provides vector embedding generation for product,
// concept and profile text, plus the binary vector encoding used in storage.
package embedding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBlob is returned when a stored vector has a length that is not a
// multiple of four bytes.
var ErrInvalidBlob = errors.New("embedding blob length is not a multiple of 4")

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32 // 384 dimensions for all-minilm
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Encode packs a vector as little-endian float32s.
func Encode(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// Decode unpacks a vector written by Encode. A nil or empty blob decodes to
// a nil vector.
func Decode(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidBlob, len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
