package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"valutahub/internal/auth"
)

func authedHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			t.Fatalf("user id missing from context")
		}
		w.Write([]byte(userID))
	})
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	token, err := auth.GenerateToken("secret", "user-1", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	Auth("secret")(authedHandler(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if rec.Body.String() != "user-1" {
		t.Fatalf("unexpected user id: %s", rec.Body.String())
	}
}

func TestAuthRejectsBadRequests(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"no scheme":      "token-without-scheme",
		"wrong scheme":   "Basic abc",
		"garbage token":  "Bearer not-a-jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatalf("handler reached without valid token")
			})
			Auth("secret")(next).ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestAuthRejectsTokenSignedWithOtherSecret(t *testing.T) {
	token, err := auth.GenerateToken("other", "user-1", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler reached with forged token")
	})
	Auth("secret")(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
