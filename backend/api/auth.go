package api

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tractionhq/traction/shared"
)

const (
	// TokenLength is the number of random bytes in a generated token.
	TokenLength = 32

	// TokenPrefix marks traction API tokens.
	TokenPrefix = "tr_"
)

// GenerateToken creates a new bearer token for the HTTP API.
func GenerateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", shared.Wrap(shared.ErrorSourceSystem, err, "failed to generate token")
	}
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ValidateTokenFormat reports whether a string looks like a traction token.
func ValidateTokenFormat(token string) bool {
	if !strings.HasPrefix(token, TokenPrefix) {
		return false
	}
	encoded := strings.TrimPrefix(token, TokenPrefix)
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	return len(decoded) == TokenLength
}

// HashToken returns the digest under which a token is compared. Tokens are
// never compared raw.
func HashToken(token string) [sha256.Size]byte {
	return sha256.Sum256([]byte(token))
}

// TokenVerifier authenticates requests against a single configured token.
type TokenVerifier struct {
	expected [sha256.Size]byte
}

func NewTokenVerifier(token string) *TokenVerifier {
	return &TokenVerifier{expected: HashToken(token)}
}

// Verify checks a presented token in constant time.
func (v *TokenVerifier) Verify(token string) bool {
	presented := HashToken(token)
	return subtle.ConstantTimeCompare(presented[:], v.expected[:]) == 1
}

// Middleware rejects requests without a valid bearer token.
func (v *TokenVerifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok || !v.Verify(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
