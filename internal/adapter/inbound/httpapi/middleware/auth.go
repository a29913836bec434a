package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/pkg/apierror"
)

// SignatureHeader carries the identity provider's body signature as "sha256=<hex>".
const SignatureHeader = "X-Signature-256"

// HMACAuth returns middleware that validates an HMAC-SHA256 signature of the
// buffered body. It must run inside BodyReader.
func HMACAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sigHeader := r.Header.Get(SignatureHeader)
			if sigHeader == "" {
				apierror.Write(w, apierror.Unauthorized("missing signature header"))
				return
			}

			const prefix = "sha256="
			if !strings.HasPrefix(sigHeader, prefix) {
				apierror.Write(w, apierror.Unauthorized("invalid signature format"))
				return
			}

			providedSig, err := hex.DecodeString(strings.TrimPrefix(sigHeader, prefix))
			if err != nil {
				apierror.Write(w, apierror.Unauthorized("invalid signature encoding"))
				return
			}

			body, ok := RawBody(r.Context())
			if !ok {
				apierror.Write(w, apierror.Internal("request body not available for signature verification"))
				return
			}

			if !hmac.Equal(Sign(secret, body), providedSig) {
				apierror.Write(w, apierror.Unauthorized("invalid HMAC signature"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Sign returns the raw HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// Claims are the bearer token claims issued by the MedMe identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

var errUnexpectedMethod = errors.New("unexpected signing method")

// TokenVerifier validates HS256 bearer tokens.
type TokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewTokenVerifier(secret, issuer, audience string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Verify parses token and returns its claims. Issuer and audience are enforced
// when configured.
func (v *TokenVerifier) Verify(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", errUnexpectedMethod, t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Issue signs a token for subject with the given role. It is used by tests and the
// -issue-token flag for local development.
func (v *TokenVerifier) Issue(subject string, role model.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(role),
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func bearerToken(r *http.Request) (string, bool, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false, nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", true, errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(parts[1]), true, nil
}
