/*
Package codec bridges the opaque byte payloads frame.Frame carries to
the wire.Message/credentials.Credentials values the rest of the core
operates on. It is the external command-serialization collaborator:
the ConnectionManager imports this package only to build NewJSON as
its default codec, and otherwise calls through the pipeline.Codec
interface the caller supplies.

JSON is the default, minimal realization — enough to exercise the
built-in control messages (wire.Kind) end to end and to let a caller
register its own application command kinds without forking the codec.
*/
package codec

import (
	"encoding/json"
	"errors"

	"github.com/vectorlog/client-go/credentials"
	"github.com/vectorlog/client-go/wire"
)

var (
	ErrEmptyPayload  = errors.New("codec: empty payload")
	ErrUnknownKind   = errors.New("codec: unknown message kind")
	ErrUnknownScheme = errors.New("codec: unknown credential scheme")
)

// DecodeFunc decodes an application-defined message body. Registered
// per wire.Kind by the caller for kinds beyond the built-in control
// messages.
type DecodeFunc func(body []byte) (wire.Message, error)

// JSON is a Codec that prefixes a one-byte wire.Kind tag to a JSON
// body. The built-in control messages (all empty structs) decode for
// free; callers Register a DecodeFunc for every application kind they
// define.
type JSON struct {
	custom map[wire.Kind]DecodeFunc
}

// NewJSON constructs an empty JSON codec with only the built-in
// control messages registered.
func NewJSON() *JSON {
	return &JSON{custom: make(map[wire.Kind]DecodeFunc)}
}

// Register installs a decoder for an application-defined kind.
func (j *JSON) Register(kind wire.Kind, fn DecodeFunc) {
	j.custom[kind] = fn
}

// Encode renders msg as a kind-tagged JSON payload.
func (j *JSON) Encode(msg wire.Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(body))
	out[0] = byte(msg.Kind())
	copy(out[1:], body)
	return out, nil
}

// Decode parses a kind-tagged JSON payload back into a wire.Message.
func (j *JSON) Decode(payload []byte) (wire.Message, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	kind := wire.Kind(payload[0])
	body := payload[1:]

	switch kind {
	case wire.KindHeartbeatRequest:
		return wire.HeartbeatRequest{}, nil
	case wire.KindHeartbeatResponse:
		return wire.HeartbeatResponse{}, nil
	case wire.KindPing:
		return wire.Ping{}, nil
	case wire.KindPong:
		return wire.Pong{}, nil
	case wire.KindSubscribe:
		return wire.Subscribe{}, nil
	case wire.KindSubscribeCompleted:
		return wire.SubscribeCompleted{}, nil
	case wire.KindUnsubscribe:
		return wire.Unsubscribe{}, nil
	case wire.KindUnsubscribeCompleted:
		return wire.UnsubscribeCompleted{}, nil
	}

	if fn, ok := j.custom[kind]; ok {
		return fn(body)
	}
	return nil, ErrUnknownKind
}

// credential scheme tags for the frame's one-byte CredKind field.
const (
	credKindNone byte = iota
	credKindBasic
	credKindBearer
)

// EncodeCredentials renders c as a frame credential sub-block. A nil c
// encodes to (credKindNone, nil).
func EncodeCredentials(c credentials.Credentials) (byte, []byte) {
	if c == nil {
		return credKindNone, nil
	}
	switch c.Scheme() {
	case "basic":
		return credKindBasic, c.Bytes()
	case "bearer":
		return credKindBearer, c.Bytes()
	default:
		return credKindNone, nil
	}
}

// DecodeCredentials parses a frame credential sub-block back into a
// Credentials value understood well enough to log and forward; basic
// is reconstructed with the username/password split restored, bearer
// is carried as an opaque token.
func DecodeCredentials(kind byte, body []byte) (credentials.Credentials, error) {
	switch kind {
	case credKindNone:
		return nil, nil
	case credKindBasic:
		return decodeBasic(body), nil
	case credKindBearer:
		return bearerToken(body), nil
	default:
		return nil, ErrUnknownScheme
	}
}

func decodeBasic(body []byte) credentials.Basic {
	for i, b := range body {
		if b == 0 {
			return credentials.Basic{Username: string(body[:i]), Password: string(body[i+1:])}
		}
	}
	return credentials.Basic{Username: string(body)}
}

type bearerToken []byte

func (b bearerToken) Scheme() string { return "bearer" }
func (b bearerToken) Bytes() []byte  { return b }
