// Package corrid defines the correlation id that ties every outbound
// package to its eventual inbound response.
package corrid

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// ID is an opaque 16-byte identifier, unique per outbound package.
type ID [16]byte

// Nil is the zero-value ID. It is never handed out by New and is
// reserved for "no correlation id" sentinels in tests.
var Nil ID

// New mints a fresh, globally unique correlation id.
func New() ID {
	return ID(uuid.New())
}

// String renders the id in UUID form for logging.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id == Nil
}

// Bytes returns the 16-byte wire representation.
func (id ID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, id[:])
	return b
}

// FromBytes parses a 16-byte wire representation produced by Bytes.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != 16 {
		return id, ErrInvalidLength
	}
	copy(id[:], b)
	return id, nil
}

// ErrInvalidLength is returned by FromBytes when b is not 16 bytes.
var ErrInvalidLength = invalidLengthError{}

type invalidLengthError struct{}

func (invalidLengthError) Error() string { return "corrid: wire representation must be 16 bytes" }

// low/high split kept for components (e.g. sequence caches) that want
// a compact, sortable key derived from the id without pulling in the
// uuid package themselves.
func (id ID) split() (uint64, uint64) {
	return binary.BigEndian.Uint64(id[:8]), binary.BigEndian.Uint64(id[8:])
}

// Compact renders the id as a 32-character lowercase hex string,
// cheaper to use as a map/Redis key than the dashed UUID form.
func (id ID) Compact() string {
	hi, lo := id.split()
	const hextable = "0123456789abcdef"
	buf := make([]byte, 32)
	for i := 0; i < 8; i++ {
		b := byte(hi >> (56 - 8*i))
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0xf]
	}
	for i := 0; i < 8; i++ {
		b := byte(lo >> (56 - 8*i))
		buf[16+i*2] = hextable[b>>4]
		buf[16+i*2+1] = hextable[b&0xf]
	}
	return string(buf)
}
