// internal/utils/binary/binary.go
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrShortBuffer is returned when a read runs past the end of the data.
var ErrShortBuffer = errors.New("short buffer")

// Reader reads little-endian fields sequentially. The first out-of-range read
// is sticky: later reads return zero values and Err reports the failure.
type Reader struct {
	data   []byte
	offset int
	err    error
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.offset+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.offset, len(r.data))
		return nil
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) {
	r.take(n)
}

// ReadFixed copies len(dst) bytes into dst.
func (r *Reader) ReadFixed(dst []byte) {
	if b := r.take(len(dst)); b != nil {
		copy(dst, b)
	}
}

// Uint8 reads a uint8 (byte)
func (r *Reader) Uint8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

// Uint32 reads a uint32 in little-endian format
func (r *Reader) Uint32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

// Uint64 reads a uint64 in little-endian format
func (r *Reader) Uint64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

// PubKey reads a Solana public key
func (r *Reader) PubKey() solana.PublicKey {
	if b := r.take(solana.PublicKeyLength); b != nil {
		return solana.PublicKeyFromBytes(b)
	}
	return solana.PublicKey{}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.offset
}

// Err returns the first read error, if any.
func (r *Reader) Err() error {
	return r.err
}

// ReadUint64LittleEndian reads a uint64 from a byte slice in little-endian format
func ReadUint64LittleEndian(data []byte, offset int) (uint64, error) {
	if offset < 0 || offset+8 > len(data) {
		return 0, fmt.Errorf("%w: need 8 bytes at offset %d, have %d", ErrShortBuffer, offset, len(data))
	}
	return binary.LittleEndian.Uint64(data[offset : offset+8]), nil
}

// AppendUint64 appends each value to dst in little-endian format
func AppendUint64(dst []byte, values ...uint64) []byte {
	for _, v := range values {
		dst = binary.LittleEndian.AppendUint64(dst, v)
	}
	return dst
}

// WriteUint64LittleEndian writes a uint64 to a byte slice in little-endian format
func WriteUint64LittleEndian(val uint64, data []byte, offset int) {
	binary.LittleEndian.PutUint64(data[offset:offset+8], val)
}

// WriteUint32LittleEndian writes a uint32 to a byte slice in little-endian format
func WriteUint32LittleEndian(val uint32, data []byte, offset int) {
	binary.LittleEndian.PutUint32(data[offset:offset+4], val)
}

// WriteUint8 writes a uint8 (byte) to a byte slice
func WriteUint8(val uint8, data []byte, offset int) {
	data[offset] = val
}

// WritePubKey writes a Solana public key to a byte slice
func WritePubKey(key solana.PublicKey, data []byte, offset int) {
	copy(data[offset:offset+32], key[:])
}
