package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret"

func TestParseBearer_ValidToken(t *testing.T) {
	tok, err := IssueToken(secret, "sonia", "Staff")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, err := ParseBearer("Bearer "+tok, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Name != "sonia" || p.Kind != KindStaff || !p.IsStaff() {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestParseBearer_Rejects(t *testing.T) {
	tok, _ := IssueToken(secret, "sonia", KindStaff)
	cases := map[string]string{
		"empty":        "",
		"no scheme":    tok,
		"wrong secret": "Bearer " + mustIssue(t, "other", "sonia", KindStaff),
		"no kind":      "Bearer " + mustIssue(t, secret, "sonia", ""),
		"garbage":      "Bearer abc.def.ghi",
	}
	for name, header := range cases {
		if _, err := ParseBearer(header, secret); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	// HS512 is not accepted
	other := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"name": "x", "kind": "admin"})
	s, _ := other.SignedString([]byte(secret))
	if _, err := ParseBearer("Bearer "+s, secret); err == nil {
		t.Errorf("expected signing method error")
	}
}

func TestRequireStaff(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", RequireStaff(secret), func(c *gin.Context) {
		p, ok := FromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, p.Name)
	})

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do(""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if code := do("Bearer " + mustIssue(t, secret, "amina", KindCustomer)); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := do("Bearer " + mustIssue(t, secret, "admin", KindAdmin)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestIssueTokenFor_CarriesEmail(t *testing.T) {
	tok, err := IssueTokenFor(secret, Principal{Name: "amina", Kind: KindCustomer, Email: "amina@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, err := ParseBearer("Bearer "+tok, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Email != "amina@example.com" || p.IsStaff() {
		t.Fatalf("unexpected principal: %+v", p)
	}
	if !p.Owns("Amina@Example.com ") {
		t.Fatalf("expected owner match ignoring case")
	}
	if p.Owns("leila@example.com") {
		t.Fatalf("must not own another customer's order")
	}
	noEmail := &Principal{Name: "x", Kind: KindCustomer}
	if noEmail.Owns("") {
		t.Fatalf("principal without email owns nothing")
	}
}

func TestAuthenticate_AcceptsAnyKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.DELETE("/orders/:id", Authenticate(secret), func(c *gin.Context) {
		p, _ := FromContext(c.Request.Context())
		c.String(http.StatusOK, p.Kind)
	})

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodDelete, "/orders/1", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do(""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if code := do("Bearer " + mustIssue(t, secret, "amina", KindCustomer)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func mustIssue(t *testing.T, secret, name, kind string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"name": name, "kind": kind})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}
