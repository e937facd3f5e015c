package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() *Service {
	return NewService(Config{
		JWTSecret:  []byte("test-secret"),
		BCryptCost: bcrypt.MinCost,
	})
}

// TestPasswordHashing tests hashing and comparison.
func TestPasswordHashing(t *testing.T) {
	svc := newTestService()

	hash, err := svc.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "correct horse" {
		t.Error("Expected hash to differ from the password")
	}

	if err := svc.ComparePassword(hash, "correct horse"); err != nil {
		t.Errorf("Expected match, got %v", err)
	}
	if err := svc.ComparePassword(hash, "battery staple"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}

// TestTokenRoundTrip tests issuing and validating a token.
func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService()

	token, err := svc.GenerateToken(7, "ada", RoleOperator)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "ada" || claims.Role != RoleOperator {
		t.Errorf("Unexpected claims %+v", claims)
	}
}

// TestValidateTokenRejects tests the rejection paths.
func TestValidateTokenRejects(t *testing.T) {
	svc := newTestService()

	t.Run("Wrong secret", func(t *testing.T) {
		other := NewService(Config{JWTSecret: []byte("other")})
		token, _ := other.GenerateToken(1, "eve", RoleAdmin)
		if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		short := NewService(Config{JWTSecret: []byte("test-secret"), TokenDuration: -time.Minute})
		token, _ := short.GenerateToken(1, "ada", RoleAdmin)
		if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Unsigned", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			Role: RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := svc.ValidateToken(s); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := svc.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})
}

// TestHasRole tests the role hierarchy.
func TestHasRole(t *testing.T) {
	tests := []struct {
		user     string
		required string
		want     bool
	}{
		{RoleAdmin, RoleOperator, true},
		{RoleOperator, RoleOperator, true},
		{RoleViewer, RoleOperator, false},
		{RoleViewer, RoleViewer, true},
		{"guest", RoleViewer, false},
		{RoleAdmin, "superuser", false},
	}

	for _, tt := range tests {
		t.Run(tt.user+" needs "+tt.required, func(t *testing.T) {
			if got := HasRole(tt.user, tt.required); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	if !CanControlMount(RoleOperator) || CanControlMount(RoleViewer) {
		t.Error("Unexpected mount control permissions")
	}
	if !CanManageUsers(RoleAdmin) || CanManageUsers(RoleOperator) {
		t.Error("Unexpected user management permissions")
	}
	if ValidRole("guest") {
		t.Error("Expected guest to be unknown")
	}
}

// TestMiddleware tests token enforcement and role checks over HTTP.
func TestMiddleware(t *testing.T) {
	svc := newTestService()
	viewerToken, _ := svc.GenerateToken(2, "val", RoleViewer)
	operatorToken, _ := svc.GenerateToken(3, "otto", RoleOperator)

	var seen *Claims
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := svc.Middleware(RequireRole(RoleOperator)(final))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"No header", "", http.StatusUnauthorized},
		{"Wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"Bad token", "Bearer nope", http.StatusUnauthorized},
		{"Viewer is forbidden", "Bearer " + viewerToken, http.StatusForbidden},
		{"Operator passes", "Bearer " + operatorToken, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/mount/abort", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, rr.Code)
			}
		})
	}

	if seen == nil || seen.Username != "otto" {
		t.Errorf("Expected operator claims in context, got %+v", seen)
	}

	t.Run("Query token on upgrade", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stream?access_token="+operatorToken, nil)
		req.Header.Set("Upgrade", "websocket")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Errorf("Expected 204, got %d", rr.Code)
		}
	})

	t.Run("Query token without upgrade", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stream?access_token="+operatorToken, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rr.Code)
		}
	})

	t.Run("RequireRole without claims", func(t *testing.T) {
		rr := httptest.NewRecorder()
		RequireRole(RoleViewer)(final).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rr.Code)
		}
	})
}
