package middlewares_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Valerijkk/defect-tracker-lite/internal/auth"
	"github.com/Valerijkk/defect-tracker-lite/internal/domain/user"
	"github.com/Valerijkk/defect-tracker-lite/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// protectedRouter mounts a probe behind RequireAuth that echoes the identity
// the middleware stashed on the context.
func protectedRouter(jwt middlewares.TokenValidator) *gin.Engine {
	r := gin.New()
	m := middlewares.NewAuthMiddleware(jwt)

	r.GET("/probe", m.RequireAuth(), func(c *gin.Context) {
		identity, ok := middlewares.IdentityFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no identity"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sub": identity.Subject, "role": identity.Role})
	})

	return r
}

func doGet(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}

	return resp.Error.Code
}

func TestRequireAuth(t *testing.T) {
	jwt := auth.NewManager("middleware-test-secret", time.Hour)
	r := protectedRouter(jwt)

	valid, err := jwt.Issue(user.User{ID: 7, Role: user.RoleEngineer})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	expired, err := auth.NewManager("middleware-test-secret", -time.Minute).Issue(user.User{ID: 7, Role: user.RoleEngineer})
	if err != nil {
		t.Fatalf("issue expired token: %v", err)
	}

	foreign, err := auth.NewManager("some-other-secret", time.Hour).Issue(user.User{ID: 7, Role: user.RoleEngineer})
	if err != nil {
		t.Fatalf("issue foreign token: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"missing header", "", http.StatusUnauthorized, "unauthorized"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "unauthorized"},
		{"bearer without token", "Bearer ", http.StatusUnauthorized, "unauthorized"},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, "token_malformed"},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, "token_expired"},
		{"foreign signature", "Bearer " + foreign, http.StatusUnauthorized, "token_bad_signature"},
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doGet(r, "/probe", tc.header)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tc.wantStatus, w.Body.String())
			}

			if tc.wantCode != "" {
				if code := errorCode(t, w.Body.Bytes()); code != tc.wantCode {
					t.Errorf("error code = %q, want %q", code, tc.wantCode)
				}
			}
		})
	}
}

func TestRequireAuthPassesIdentityDownstream(t *testing.T) {
	jwt := auth.NewManager("middleware-test-secret", time.Hour)
	r := protectedRouter(jwt)

	token, err := jwt.Issue(user.User{ID: 42, Role: user.RoleManager})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	w := doGet(r, "/probe", "Bearer "+token)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Sub  string `json:"sub"`
		Role string `json:"role"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode probe body: %v", err)
	}

	if resp.Sub != "42" {
		t.Errorf("subject = %q, want %q", resp.Sub, "42")
	}

	if resp.Role != user.RoleManager {
		t.Errorf("role = %q, want %q", resp.Role, user.RoleManager)
	}
}

func TestRequireRole(t *testing.T) {
	jwt := auth.NewManager("middleware-test-secret", time.Hour)
	m := middlewares.NewAuthMiddleware(jwt)

	r := gin.New()
	r.POST("/managers-only", m.RequireAuth(), m.RequireRole(user.RoleManager), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	issue := func(role string) string {
		token, err := jwt.Issue(user.User{ID: 1, Role: role})
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		return token
	}

	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{"manager passes", user.RoleManager, http.StatusOK},
		{"engineer is refused", user.RoleEngineer, http.StatusForbidden},
		{"unknown role is refused", "auditor", http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/managers-only", nil)
			req.Header.Set("Authorization", "Bearer "+issue(tc.role))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tc.wantStatus, w.Body.String())
			}

			if tc.wantStatus == http.StatusForbidden {
				if code := errorCode(t, w.Body.Bytes()); code != "forbidden" {
					t.Errorf("error code = %q, want %q", code, "forbidden")
				}
			}
		})
	}
}

func TestRequireRoleWithoutAuthContext(t *testing.T) {
	m := middlewares.NewAuthMiddleware(auth.NewManager("middleware-test-secret", time.Hour))

	r := gin.New()
	// RequireRole mounted without RequireAuth: no identity on the context
	r.POST("/managers-only", m.RequireRole(user.RoleManager), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/managers-only", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
