package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret"

func signToken(t *testing.T, key string, claims jwt.RegisteredClaims) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func serve(t *testing.T, middleware gin.HandlerFunc, authorization string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var subject string
	router := gin.New()
	router.GET("/results/:id", middleware, func(c *gin.Context) {
		subject = c.GetString(SubjectKey)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/results/abc", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp, subject
}

func TestJWTMiddleware(t *testing.T) {
	valid := signToken(t, secret, jwt.RegisteredClaims{Subject: "ops", Audience: jwt.ClaimStrings{"facecompare"}})
	cases := []struct {
		name     string
		audience string
		header   string
		status   int
	}{
		{"missing header", "", "", http.StatusUnauthorized},
		{"wrong scheme", "", "Basic abc", http.StatusUnauthorized},
		{"empty token", "", "Bearer  ", http.StatusUnauthorized},
		{"bad signature", "", "Bearer " + signToken(t, "other", jwt.RegisteredClaims{Subject: "ops"}), http.StatusUnauthorized},
		{"missing subject", "", "Bearer " + signToken(t, secret, jwt.RegisteredClaims{}), http.StatusUnauthorized},
		{"wrong audience", "billing", "Bearer " + valid, http.StatusUnauthorized},
		{"valid", "facecompare", "Bearer " + valid, http.StatusOK},
	}
	for _, tc := range cases {
		resp, _ := serve(t, JWTMiddleware(secret, tc.audience), tc.header)
		if resp.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.name, resp.Code, tc.status)
		}
	}
}

func TestJWTMiddlewareSetsSubject(t *testing.T) {
	token := signToken(t, secret, jwt.RegisteredClaims{Subject: "ops"})
	_, subject := serve(t, JWTMiddleware(secret, ""), "Bearer "+token)
	if subject != "ops" {
		t.Fatalf("unexpected subject %q", subject)
	}
}

func TestJWTMiddlewareWithoutSecretRejects(t *testing.T) {
	resp, _ := serve(t, JWTMiddleware("", ""), "Bearer whatever")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestOptional(t *testing.T) {
	resp, _ := serve(t, Optional("", ""), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", resp.Code)
	}
	resp, _ = serve(t, Optional(secret, ""), "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when secret is set, got %d", resp.Code)
	}
}
