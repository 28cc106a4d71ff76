package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nexus-vita/session-service/internal/domain"
)

// ErrInvalidToken is the single failure returned by Verify. Forged, malformed
// and expired tokens are indistinguishable to callers.
var ErrInvalidToken = errors.New("invalid session token")

// Credential is the payload embedded in a session token. It is immutable once
// issued; changing identity, role or expiry requires issuing a new token.
type Credential struct {
	SubjectID string      `json:"sub"`
	Role      domain.Role `json:"role"`
	ExpiresAt int64       `json:"exp"`
}

// Expiry returns the credential expiry instant.
func (c Credential) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// Codec issues and verifies self-contained session tokens of the form
// base64url(JSON payload) + "." + base64url(HMAC-SHA256(secret, payload)).
// Verification is pure computation over the token bytes; there is no session
// store and no revocation before expiry.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec builds a codec with an explicit signing secret and validity window.
func NewCodec(secret string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the validity window applied to issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a credential for the subject. The expiry is the issuance time
// plus the codec's validity window.
func (c *Codec) Issue(subjectID string, role domain.Role) (string, time.Time) {
	expiresAt := c.now().Add(c.ttl)
	payload, _ := json.Marshal(Credential{
		SubjectID: subjectID,
		Role:      role,
		ExpiresAt: expiresAt.Unix(),
	})

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + c.sign(encoded), expiresAt
}

// Verify checks the signature and expiry of a token and returns the embedded
// credential. Every failure mode collapses into ErrInvalidToken.
func (c *Codec) Verify(token string) (*Credential, error) {
	encoded, signature, found := strings.Cut(token, ".")
	if !found || encoded == "" || signature == "" {
		return nil, ErrInvalidToken
	}

	// hmac.Equal is constant-time for equal lengths and rejects a length
	// mismatch outright.
	if !hmac.Equal([]byte(signature), []byte(c.sign(encoded))) {
		return nil, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var cred Credential
	if err := json.Unmarshal(payload, &cred); err != nil {
		return nil, ErrInvalidToken
	}
	if cred.SubjectID == "" {
		return nil, ErrInvalidToken
	}
	if _, ok := domain.ParseRole(string(cred.Role)); !ok {
		return nil, ErrInvalidToken
	}
	if cred.Expiry().Before(c.now()) {
		return nil, ErrInvalidToken
	}
	return &cred, nil
}

func (c *Codec) sign(encodedPayload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
