package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

var ErrMissingToken = errors.New("missing auth token")

// TokenVerifier turns a bearer credential into the identity it carries.
type TokenVerifier interface {
	Verify(token string) (*TokenData, error)
}

type TokenData struct {
	UserID string
	Email  string
	Exp    int64
}

type JWTVerifier struct {
	keyfunc jwt.Keyfunc
	methods []string
}

// NewHMACVerifier verifies tokens signed with a shared secret.
func NewHMACVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}

	key := []byte(secret)
	return &JWTVerifier{
		keyfunc: func(*jwt.Token) (interface{}, error) { return key, nil },
		methods: []string{"HS256", "HS384", "HS512"},
	}, nil
}

// NewJWKSVerifier verifies tokens against the public keys published at jwksURL.
func NewJWKSVerifier(ctx context.Context, jwksURL string) (*JWTVerifier, error) {
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS from resource at %s: %w", jwksURL, err)
	}

	log.Infof("JWKS initialized. Keys loaded from %s", jwksURL)
	return &JWTVerifier{
		keyfunc: jwks.Keyfunc,
		methods: []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512", "PS256"},
	}, nil
}

// Verify parses AND validates the signature locally.
// It returns the data if the token is authentic and unexpired.
func (v *JWTVerifier) Verify(tokenString string) (*TokenData, error) {
	clean := sanitizeToken(tokenString)
	if clean == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(clean, v.keyfunc,
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims format")
	}

	userID := getValue(claims, "userId")
	if userID == "" {
		userID = getValue(claims, "sub")
	}
	if userID == "" {
		return nil, errors.New("token carries no user id")
	}

	return &TokenData{
		UserID: userID,
		Email:  getValue(claims, "email"),
		Exp:    getInt64(claims, "exp"),
	}, nil
}

// SignToken issues an HS256 token in the shape Verify expects.
func SignToken(secret, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"email":  email,
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ExtractToken reads the credential from the Authorization header,
// falling back to the "token" query parameter browsers use for websocket handshakes.
func ExtractToken(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		return sanitizeToken(header)
	}
	return sanitizeToken(c.QueryParam("token"))
}

func sanitizeToken(token string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
}

func getValue(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

func getInt64(claims jwt.MapClaims, key string) int64 {
	val, ok := claims[key]
	if !ok {
		return 0
	}
	if f, ok := val.(float64); ok {
		return int64(f)
	}
	if i, ok := val.(int64); ok {
		return i
	}
	return 0
}
