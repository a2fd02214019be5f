package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/restx/pkg/domain"
	"github.com/aretw0/restx/pkg/signature"
)

const (
	// CookieName holds the encoded session payload.
	CookieName = "RestxSession"
	// SignatureCookieName holds the signature of the exact raw value of CookieName.
	SignatureCookieName = "RestxSessionSignature"

	// PayloadCodecName is the registry name of the PayloadCodec used for session cookies.
	PayloadCodecName = "restx.session.payload-codec"
)

// PayloadCodec turns the flat session mapping into a cookie-safe string and back.
type PayloadCodec interface {
	Encode(valueIDs map[string]string) (string, error)
	Decode(raw string) (map[string]string, error)
}

// JSONCodec encodes the mapping as JSON wrapped in unpadded base64url,
// since raw JSON quotes are not valid cookie octets.
type JSONCodec struct{}

// Encode implements PayloadCodec.
func (JSONCodec) Encode(valueIDs map[string]string) (string, error) {
	if valueIDs == nil {
		valueIDs = map[string]string{}
	}
	data, err := json.Marshal(valueIDs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode implements PayloadCodec.
func (JSONCodec) Decode(raw string) (map[string]string, error) {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session base64: %w", err)
	}
	var valueIDs map[string]string
	if err := json.Unmarshal(data, &valueIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return valueIDs, nil
}

// Codec reconstructs sessions from the signed cookie pair and emits them back.
type Codec struct {
	def     *Definition
	payload PayloadCodec
	key     signature.Key
}

// NewCodec binds a definition, a payload codec and a signature key.
func NewCodec(def *Definition, payload PayloadCodec, key signature.Key) *Codec {
	return &Codec{def: def, payload: payload, key: key}
}

// Definition returns the definition new sessions are bound to.
func (c *Codec) Definition() *Definition {
	return c.def
}

// Empty returns a new empty session.
func (c *Codec) Empty() *Session {
	return New(c.def, nil)
}

// FromRequest reconstructs the session carried by r.
//
// No session cookie yields an empty session. A session cookie whose signature
// does not match yields domain.ErrInvalidSessionSignature.
func (c *Codec) FromRequest(r *http.Request) (*Session, error) {
	raw := cookieValue(r, CookieName)
	if strings.TrimSpace(raw) == "" {
		return c.Empty(), nil
	}

	sig := cookieValue(r, SignatureCookieName)
	if !signature.Verify(raw, sig, c.key.Bytes()) {
		return nil, domain.ErrInvalidSessionSignature
	}

	valueIDs, err := c.payload.Decode(raw)
	if err != nil {
		return nil, domain.InvalidArgument("invalid restx session: %v", err)
	}
	return New(c.def, valueIDs), nil
}

// Cookies encodes and signs s into the session cookie pair.
func (c *Codec) Cookies(s *Session) ([]*http.Cookie, error) {
	raw, err := c.payload.Encode(s.valueIDs)
	if err != nil {
		return nil, err
	}
	sig, err := signature.Sign(raw, c.key.Bytes())
	if err != nil {
		return nil, err
	}
	return []*http.Cookie{
		{Name: CookieName, Value: raw, Path: "/", HttpOnly: true},
		{Name: SignatureCookieName, Value: sig, Path: "/", HttpOnly: true},
	}, nil
}

// Write attaches the signed cookie pair for s to w. It must run before the
// response header is written.
func (c *Codec) Write(w http.ResponseWriter, s *Session) error {
	cookies, err := c.Cookies(s)
	if err != nil {
		return err
	}
	for _, ck := range cookies {
		http.SetCookie(w, ck)
	}
	return nil
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
