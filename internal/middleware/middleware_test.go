package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/formvoice/core/internal/pkg/jwt"
	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

func TestNormalizeToken(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"  abc ":         "abc",
		"Bearer abc":     "abc",
		"bearer   abc  ": "abc",
		"BEARER abc.def": "abc.def",
		"Bearerless-tok": "Bearerless-tok",
	}
	for in, want := range cases {
		if got := NormalizeToken(in); got != want {
			t.Fatalf("NormalizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAuth(t *testing.T) {
	signer := jwt.NewSigner("secret")
	r := gin.New()
	r.GET("/private", Auth(signer), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c))
	})
	r.GET("/public", OptionalAuth(signer), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c))
	})

	token, _ := signer.Sign("u-42", time.Hour)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "u-42" {
		t.Fatalf("expected user id, got %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public?token=garbage", nil))
	if w.Code != http.StatusOK || w.Body.String() != "" {
		t.Fatalf("optional auth should pass anonymously, got %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public?token="+token, nil))
	if w.Body.String() != "u-42" {
		t.Fatalf("optional auth should pick up query token, got %q", w.Body.String())
	}
}
