package invoice

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/formvoice/core/internal/middleware"
	"github.com/formvoice/core/internal/models"
	"github.com/formvoice/core/internal/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

func newRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := newServices(t)
	signer := jwt.NewSigner("test")
	token, err := signer.Sign("owner", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"), middleware.Auth(signer))
	return r, token
}

func do(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerInvoiceLifecycle(t *testing.T) {
	r, token := newRouter(t)

	if w := do(r, http.MethodGet, "/api/v1/invoices", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("list without token: %d", w.Code)
	}

	w := do(r, http.MethodPost, "/api/v1/invoices", token, sample("INV-100"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var inv models.InvoiceModel
	if err := json.Unmarshal(w.Body.Bytes(), &inv); err != nil {
		t.Fatal(err)
	}

	bad := sample("INV-101")
	bad.InvoiceDate = "19/10/2026"
	if w := do(r, http.MethodPost, "/api/v1/invoices", token, bad); w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "invoice_date") {
		t.Fatalf("invalid date: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, "/api/v1/invoices", token, sample("INV-100")); w.Code != http.StatusConflict {
		t.Fatalf("duplicate number: %d", w.Code)
	}

	w = do(r, http.MethodGet, "/api/v1/invoices/"+inv.ID+"/render", token, nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") || !strings.Contains(w.Body.String(), "INV-100") {
		t.Fatalf("render: %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	if w := do(r, http.MethodDelete, "/api/v1/invoices/"+inv.ID, token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/invoices/"+inv.ID, token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", w.Code)
	}
}
