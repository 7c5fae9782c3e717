/*
Package frame implements the length-prefixed binary framing the
pipeline reads and writes. It solves the classic sticky-packet/
half-packet problem with a fixed header ahead of a variable-length
body, extended with a correlation id and a credentials sub-block so
the frame alone carries everything PackageOut/PackageIn need before a
single byte of the application payload is decoded.

Wire layout (big-endian):

	+----------+--------------------+----------+----------+-------------------+
	| Length   | CorrelationID      | CredLen  | CredKind |   CredBody        |
	| 4 bytes  | 16 bytes           | 2 bytes  | 1 byte   |  CredLen bytes    |
	+----------+--------------------+----------+----------+-------------------+
	|<---------------------- fixed 23-byte header ------->|<-- cred body ---->|

The payload follows CredBody and runs to the end of the frame.
Length counts everything after itself: 16 (correlation id) + 2 (cred
length) + 1 (cred kind) + CredLen (cred body) + len(payload).
*/
package frame

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

const (
	// HeaderLength is the fixed portion preceding the credentials body
	// and payload: Length(4) + CorrelationID(16) + CredLen(2) + CredKind(1).
	HeaderLength = 4 + 16 + 2 + 1

	// MaxPayloadLength bounds a single frame's payload, guarding
	// against a malicious or corrupt length field driving an
	// oversized allocation.
	MaxPayloadLength = 4 * 1024 * 1024

	// MaxCredentialLength bounds the credentials sub-block similarly.
	MaxCredentialLength = 8 * 1024
)

var (
	ErrPayloadTooLarge    = errors.New("frame: payload exceeds maximum allowed size")
	ErrCredentialTooLarge = errors.New("frame: credential block exceeds maximum allowed size")
	ErrInvalidHeader      = errors.New("frame: invalid frame header")
)

// Frame is one decoded wire frame: a correlation id, an optional
// credential sub-block (CredKind == 0 means "none"), and an opaque
// payload the caller's codec is responsible for decoding further.
type Frame struct {
	CorrelationID [16]byte
	CredKind      byte
	CredBody      []byte
	Payload       []byte
}

// Encode serializes f into a single frame ready to be written to the
// wire.
func Encode(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayloadLength {
		return nil, ErrPayloadTooLarge
	}
	if len(f.CredBody) > MaxCredentialLength {
		return nil, ErrCredentialTooLarge
	}

	body := 16 + 2 + 1 + len(f.CredBody) + len(f.Payload)
	buf := make([]byte, 4+body)

	binary.BigEndian.PutUint32(buf[0:4], uint32(body))
	copy(buf[4:20], f.CorrelationID[:])
	binary.BigEndian.PutUint16(buf[20:22], uint16(len(f.CredBody)))
	buf[22] = f.CredKind
	copy(buf[23:23+len(f.CredBody)], f.CredBody)
	copy(buf[23+len(f.CredBody):], f.Payload)

	return buf, nil
}

// Read parses exactly one frame from r, blocking until it is fully
// available: read the fixed header, validate the declared length, then
// read precisely that many bytes.
func Read(r *bufio.Reader) (Frame, error) {
	header := make([]byte, HeaderLength)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}

	length := binary.BigEndian.Uint32(header[0:4])
	var f Frame
	copy(f.CorrelationID[:], header[4:20])
	credLen := binary.BigEndian.Uint16(header[20:22])
	f.CredKind = header[22]

	if int(length) < 16+2+1+int(credLen) {
		return Frame{}, ErrInvalidHeader
	}
	payloadLen := int(length) - 16 - 2 - 1 - int(credLen)
	if payloadLen < 0 {
		return Frame{}, ErrInvalidHeader
	}
	if int(credLen) > MaxCredentialLength {
		return Frame{}, ErrCredentialTooLarge
	}
	if payloadLen > MaxPayloadLength {
		return Frame{}, ErrPayloadTooLarge
	}

	if credLen > 0 {
		f.CredBody = make([]byte, credLen)
		if _, err := io.ReadFull(r, f.CredBody); err != nil {
			return Frame{}, err
		}
	}
	if payloadLen > 0 {
		f.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return Frame{}, err
		}
	}

	return f, nil
}
