package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	domainagg "github.com/gearstack/partsmarket-backend/internal/domain/aggregates"
	"github.com/gearstack/partsmarket-backend/internal/services"
)

type stubAuth struct {
	claims *services.Claims
}

func (s *stubAuth) Register(context.Context, services.RegisterInput) (domainagg.UserSnapshot, error) {
	return domainagg.UserSnapshot{}, nil
}

func (s *stubAuth) Login(context.Context, string, string) (services.LoginResult, error) {
	return services.LoginResult{}, nil
}

func (s *stubAuth) ParseToken(token string) (*services.Claims, error) {
	if token != "good" || s.claims == nil {
		return nil, errors.New("invalid token")
	}
	return s.claims, nil
}

func claimsFor(userID uuid.UUID, role domain.UserRole) *services.Claims {
	return &services.Claims{
		Role:             string(role),
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
	}
}

func authRouter(auth services.AuthService, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{RequireAuth(auth)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := CallerID(c)
		role, _ := CallerRole(c)
		c.JSON(http.StatusOK, gin.H{"userId": id.String(), "role": string(role)})
	})
	r.GET("/probe", handlers...)
	return r
}

func doProbe(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuthMissingHeader(t *testing.T) {
	r := authRouter(&stubAuth{})
	if w := doProbe(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=401 got=%d", w.Code)
	}
}

func TestRequireAuthBadToken(t *testing.T) {
	r := authRouter(&stubAuth{})
	if w := doProbe(r, "Bearer bad"); w.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=401 got=%d", w.Code)
	}
}

func TestRequireAuthStoresCallerIdentity(t *testing.T) {
	userID := uuid.New()
	r := authRouter(&stubAuth{claims: claimsFor(userID, domain.RoleSupplier)})

	w := doProbe(r, "Bearer good")
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", w.Code, w.Body)
	}
	body := w.Body.String()
	if !strings.Contains(body, userID.String()) || !strings.Contains(body, string(domain.RoleSupplier)) {
		t.Fatalf("caller identity missing: %s", body)
	}
}

func TestRequireRoleMismatchForbidden(t *testing.T) {
	r := authRouter(&stubAuth{claims: claimsFor(uuid.New(), domain.RoleGarage)}, RequireRole(domain.RoleSupplier))
	if w := doProbe(r, "Bearer good"); w.Code != http.StatusForbidden {
		t.Fatalf("status: want=403 got=%d", w.Code)
	}
}

func TestRequireRoleMatchPasses(t *testing.T) {
	r := authRouter(&stubAuth{claims: claimsFor(uuid.New(), domain.RoleSupplier)}, RequireRole(domain.RoleSupplier))
	if w := doProbe(r, "Bearer good"); w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", w.Code)
	}
}
