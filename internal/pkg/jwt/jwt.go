package jwt

import (
	"time"

	"emperror.dev/errors"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

const defaultSecret = "formvoice-secret-change-me"

const ErrInvalidToken = errors.Sentinel("invalid token")

// Signer issues and verifies HS256 tokens.
type Signer struct {
	secret []byte
	issuer string
}

// NewSigner falls back to a built-in secret when secret is empty; IsDefault
// reports that case so startup can warn about it.
func NewSigner(secret string) *Signer {
	if secret == "" {
		secret = defaultSecret
	}
	return &Signer{secret: []byte(secret), issuer: "formvoice"}
}

// IsDefault reports whether the built-in development secret is in use.
func (s *Signer) IsDefault() bool { return string(s.secret) == defaultSecret }

// Claims is the JWT payload.
type Claims struct {
	UserID string `json:"uid"`
	jwtlib.RegisteredClaims
}

// Sign creates a signed token for the given user ID.
func (s *Signer) Sign(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	return signed, errors.WithStack(err)
}

// Parse validates a token string and returns the claims.
func (s *Signer) Parse(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return s.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithIssuer(s.issuer))
	if err != nil {
		return nil, errors.WrapIf(ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.WithStack(ErrInvalidToken)
	}
	return claims, nil
}
