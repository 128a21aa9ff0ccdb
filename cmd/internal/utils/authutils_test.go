package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/tj/assert"
)

const testSecret = "test-secret"

func TestJWTVerifier(t *testing.T) {
	v, err := NewHMACVerifier(testSecret)
	assert.Nil(t, err)

	t.Run("valid", func(t *testing.T) {
		token, err := SignToken(testSecret, "u1", "u1@test.dev", time.Hour)
		assert.Nil(t, err)

		data, err := v.Verify("Bearer " + token)
		assert.Nil(t, err)
		assert.Equal(t, "u1", data.UserID)
		assert.Equal(t, "u1@test.dev", data.Email)
		assert.True(t, data.Exp > time.Now().Unix())
	})

	t.Run("expired", func(t *testing.T) {
		token, _ := SignToken(testSecret, "u1", "", -time.Minute)
		_, err := v.Verify(token)
		assert.NotNil(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _ := SignToken("other", "u1", "", time.Hour)
		_, err := v.Verify(token)
		assert.NotNil(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := v.Verify("  ")
		assert.Equal(t, ErrMissingToken, err)
	})

	t.Run("no expiry", func(t *testing.T) {
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": "u1"}).
			SignedString([]byte(testSecret))
		_, err := v.Verify(token)
		assert.NotNil(t, err)
	})

	t.Run("sub fallback", func(t *testing.T) {
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "u2",
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte(testSecret))
		data, err := v.Verify(token)
		assert.Nil(t, err)
		assert.Equal(t, "u2", data.UserID)
	})

	t.Run("no user", func(t *testing.T) {
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte(testSecret))
		_, err := v.Verify(token)
		assert.NotNil(t, err)
	})

	t.Run("alg none", func(t *testing.T) {
		token, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"userId": "u1",
			"exp":    time.Now().Add(time.Hour).Unix(),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		_, err := v.Verify(token)
		assert.NotNil(t, err)
	})
}

func TestNewHMACVerifier_EmptySecret(t *testing.T) {
	_, err := NewHMACVerifier("")
	assert.NotNil(t, err)
}

func TestExtractToken(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/ws?token=fromquery", nil)
	assert.Equal(t, "fromquery", ExtractToken(e.NewContext(req, httptest.NewRecorder())))

	req = httptest.NewRequest(http.MethodGet, "/ws?token=fromquery", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer fromheader")
	assert.Equal(t, "fromheader", ExtractToken(e.NewContext(req, httptest.NewRecorder())))

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Equal(t, "", ExtractToken(e.NewContext(req, httptest.NewRecorder())))
}

func TestGenerateDisplayName(t *testing.T) {
	name := GenerateDisplayName()
	assert.Regexp(t, `^[A-Z][a-z]+[A-Z][a-z]+\d{1,3}$`, name)
}
