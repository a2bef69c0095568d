package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Valerijkk/defect-tracker-lite/internal/auth"
	"github.com/Valerijkk/defect-tracker-lite/internal/domain/user"
	"github.com/Valerijkk/defect-tracker-lite/internal/http/handlers"
	"github.com/Valerijkk/defect-tracker-lite/internal/repo/memory"
	"github.com/Valerijkk/defect-tracker-lite/internal/security"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// small helper which returns a gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func testJWT() *auth.Manager {
	return auth.NewManager("handler-test-secret", time.Hour)
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRegisterForcesEngineerRole(t *testing.T) {
	users := memory.NewUsersRepo()
	jwtManager := testJWT()

	h := handlers.NewAuthHandler(users, users, jwtManager)
	r := setupRouter(http.MethodPost, "/api/auth/register", h.Register)

	// the body explicitly asks for manager
	w := postJSON(t, r, "/api/auth/register", `{"email":"Eve@Example.com","password":"secret1","role":"manager"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
		Role  string `json:"role"`
		Email string `json:"email"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Role != user.RoleEngineer {
		t.Errorf("role = %q, want %q", resp.Role, user.RoleEngineer)
	}

	if resp.Email != "eve@example.com" {
		t.Errorf("email = %q, want normalized lowercase", resp.Email)
	}

	stored, err := users.GetByEmail(context.Background(), "eve@example.com")

	if err != nil {
		t.Fatalf("stored user not found: %v", err)
	}

	if stored.Role != user.RoleEngineer {
		t.Errorf("stored role = %q, want %q", stored.Role, user.RoleEngineer)
	}

	identity, err := jwtManager.Validate(resp.Token)

	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}

	if identity.Role != user.RoleEngineer {
		t.Errorf("token role = %q, want %q", identity.Role, user.RoleEngineer)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := memory.NewUsersRepo()

	h := handlers.NewAuthHandler(users, users, testJWT())
	r := setupRouter(http.MethodPost, "/api/auth/register", h.Register)

	first := postJSON(t, r, "/api/auth/register", `{"email":"dup@example.com","password":"secret1"}`)

	if first.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", first.Code)
	}

	second := postJSON(t, r, "/api/auth/register", `{"email":"dup@example.com","password":"secret2"}`)

	if second.Code != http.StatusConflict {
		t.Fatalf("second register status = %d, want 409", second.Code)
	}

	if !bytes.Contains(second.Body.Bytes(), []byte("email_exists")) {
		t.Errorf("body missing email_exists code: %s", second.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	users := memory.NewUsersRepo()

	h := handlers.NewAuthHandler(users, users, testJWT())
	r := setupRouter(http.MethodPost, "/api/auth/register", h.Register)

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"password":"secret1"}`},
		{"bad email", `{"email":"not-an-email","password":"secret1"}`},
		{"short password", `{"email":"a@b.com","password":"abc"}`},
		{"bad json", `{`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, r, "/api/auth/register", tc.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	users := memory.NewUsersRepo()
	jwtManager := testJWT()

	hash, err := security.HashPassword("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	seeded, err := users.Create(context.Background(), "admin@example.com", hash, user.RoleManager)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	h := handlers.NewAuthHandler(users, users, jwtManager)
	r := setupRouter(http.MethodPost, "/api/auth/login", h.Login)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid credentials", `{"email":"admin@example.com","password":"admin123"}`, http.StatusOK},
		{"email is matched case-insensitively", `{"email":"ADMIN@example.com","password":"admin123"}`, http.StatusOK},
		{"wrong password", `{"email":"admin@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"email":"ghost@example.com","password":"admin123"}`, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, r, "/api/auth/login", tc.body)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tc.wantStatus, w.Body.String())
			}

			if tc.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Token string `json:"token"`
				Role  string `json:"role"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}

			identity, err := jwtManager.Validate(resp.Token)

			if err != nil {
				t.Fatalf("token does not validate: %v", err)
			}

			if identity.Subject != "1" {
				t.Errorf("token subject = %q, want %q", identity.Subject, "1")
			}

			if identity.Role != seeded.Role {
				t.Errorf("token role = %q, want %q", identity.Role, seeded.Role)
			}
		})
	}
}
