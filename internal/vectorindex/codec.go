package vectorindex

import (
	"encoding/binary"
	"math"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

const bytesPerFloat = 4

// EncodeEmbedding serializes v as little-endian float32 bytes. The result is
// a fresh allocation: callers may freely mutate v afterward without
// aliasing the stored blob.
func EncodeEmbedding(v []float32) []byte {
	out := make([]byte, len(v)*bytesPerFloat)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*bytesPerFloat:], math.Float32bits(f))
	}
	return out
}

// DecodeEmbedding parses a little-endian float32 blob, verifying it is
// 4-byte aligned before decoding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%bytesPerFloat != 0 {
		return nil, errorcode.Validation("embedding blob is not 4-byte aligned", nil)
	}
	out := make([]float32, len(b)/bytesPerFloat)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*bytesPerFloat:]))
	}
	return out, nil
}
