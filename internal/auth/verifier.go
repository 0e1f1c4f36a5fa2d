package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studyquiz/chat-service/internal/config"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	authHeaderKey = "Authorization"
	bearerPrefix  = "Bearer "
	tokenQueryKey = "token"
)

// Claims is the token shape the main platform issues. UserID is the
// numeric account id stamped onto ingested messages; Nickname is the
// display name.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"userId"`
	Nickname string `json:"nickname"`
}

// Identity is the resolved principal attached to a connection's
// session attributes.
type Identity struct {
	UserID      int64
	DisplayName string
}

// Verifier validates platform-issued access tokens. HS256: the issuing
// application and this service share the configured secret.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}
}

// Verify parses and validates a token and returns the identity it
// carries.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID:      claims.UserID,
		DisplayName: claims.Nickname,
	}, nil
}

// TokenFromRequest extracts the bearer token from the Authorization
// header, falling back to the token query parameter browsers use on
// WebSocket handshakes.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get(authHeaderKey); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix)
	}
	return r.URL.Query().Get(tokenQueryKey)
}
