/*
Package credentials - bearer credentials

A JWT proves a client's identity to the endpoint it just connected to;
verification happens on the server that receives the token. A
connection-core client never validates tokens it receives (it is not
the verifier), only mints the one it sends, so this component is a
strict subset of a full JWT implementation: generation plus a local
expiry check, not verification.
*/
package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the client minting a bearer credential. It embeds
// jwt.RegisteredClaims for the standard exp/iat/iss fields.
type Claims struct {
	ClientID string `json:"client_id"`

	jwt.RegisteredClaims
}

// JWT is a bearer credential signed with HS256, reminted by Token once
// the cached token is within refreshAfter of expiry.
type JWT struct {
	secret       []byte
	clientID     string
	issuer       string
	ttl          time.Duration
	refreshAfter time.Duration

	signed  string
	expires time.Time
}

// NewJWT constructs a bearer credential minter. ttl is how long each
// minted token is valid; refreshAfter is the window before expiry
// inside which Token remints rather than reusing the cached value.
func NewJWT(secret []byte, clientID, issuer string, ttl, refreshAfter time.Duration) *JWT {
	return &JWT{
		secret:       secret,
		clientID:     clientID,
		issuer:       issuer,
		ttl:          ttl,
		refreshAfter: refreshAfter,
	}
}

// Token returns a signed token, minting a new one if none is cached or
// the cached one is past its refresh window.
func (j *JWT) Token(now time.Time) (string, error) {
	if j.signed != "" && now.Before(j.expires.Add(-j.refreshAfter)) {
		return j.signed, nil
	}
	return j.mint(now)
}

func (j *JWT) mint(now time.Time) (string, error) {
	expires := now.Add(j.ttl)
	claims := &Claims{
		ClientID: j.clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", err
	}

	j.signed = signed
	j.expires = expires
	return signed, nil
}

// AsOf returns a Credentials snapshot carrying the token valid at now,
// minting/refreshing as needed. The returned value is immutable and
// safe to attach to a single PackageOut.
func (j *JWT) AsOf(now time.Time) (Credentials, error) {
	tok, err := j.Token(now)
	if err != nil {
		return nil, err
	}
	return bearer(tok), nil
}

type bearer string

func (b bearer) Scheme() string { return "bearer" }
func (b bearer) Bytes() []byte  { return []byte(b) }
