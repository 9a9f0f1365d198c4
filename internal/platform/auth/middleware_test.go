package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func subjectClaims(sub string, exp time.Time) Claims {
	return Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}}
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (ledger.Principal, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/patients/:patient")

	var got ledger.Principal
	err := mw(func(c echo.Context) error {
		p, err := Caller(c)
		if err != nil {
			return err
		}
		got = p
		return c.String(http.StatusOK, "ok")
	})(c)
	return got, err
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), req)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	tokenStr := createTestToken(t, subjectClaims("0xD1", time.Now().Add(time.Hour)), testSigningKey)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)

	p, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != "0xD1" {
		t.Errorf("expected principal 0xD1, got %q", p)
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	tokenStr := createTestToken(t, subjectClaims("0xD1", time.Now().Add(-time.Hour)), testSigningKey)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)

	_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	tokenStr := createTestToken(t, subjectClaims("0xD1", time.Now().Add(time.Hour)), []byte("another-key"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)

	_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_MalformedSubject(t *testing.T) {
	for _, sub := range []string{"", "has space"} {
		tokenStr := createTestToken(t, subjectClaims(sub, time.Now().Add(time.Hour)), testSigningKey)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)

		_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), req)
		expectStatus(t, err, http.StatusUnauthorized)
	}
}

func TestJWTMiddleware_IssuerAudience(t *testing.T) {
	claims := subjectClaims("0xP1", time.Now().Add(time.Hour))
	claims.Issuer = "https://issuer.example"
	claims.Audience = jwt.ClaimStrings{"medichain"}
	tokenStr := createTestToken(t, claims, testSigningKey)

	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "https://issuer.example", Audience: "medichain"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	if _, err := runMiddleware(t, JWTMiddleware(cfg), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Audience = "other-service"
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	_, err := runMiddleware(t, JWTMiddleware(cfg), req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware_Header(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(PrincipalHeader, "0xP1")

	p, err := runMiddleware(t, DevAuthMiddleware(nil), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != "0xP1" {
		t.Errorf("expected 0xP1, got %q", p)
	}
}

func TestDevAuthMiddleware_InvalidHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(PrincipalHeader, "two words")
	_, err := runMiddleware(t, DevAuthMiddleware(nil), req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware_NoPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := runMiddleware(t, DevAuthMiddleware(nil), req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware_FallsBackToToken(t *testing.T) {
	tokenStr := createTestToken(t, subjectClaims("0xV1", time.Now().Add(time.Hour)), testSigningKey)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)

	p, err := runMiddleware(t, DevAuthMiddleware(JWTMiddleware(JWTConfig{SigningKey: testSigningKey})), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != "0xV1" {
		t.Errorf("expected 0xV1, got %q", p)
	}
}

func TestParseRSAPublicKey(t *testing.T) {
	key, err := parseRSAPublicKey(JWKSKey{Kty: "RSA", N: "AQAB", E: "AQAB"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.E != 65537 {
		t.Errorf("expected exponent 65537, got %d", key.E)
	}
	if _, err := parseRSAPublicKey(JWKSKey{Kty: "RSA", N: "!!", E: "AQAB"}); err == nil {
		t.Error("expected error for bad modulus")
	}
}
