package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abgdnv/storefront/pkg/web"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Claims is the payload of an access token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 access tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user.
func (t *Tokens) Issue(u User) (string, error) {
	now := t.now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify checks signature and expiry and returns the claims.
func (t *Tokens) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

type identityKey struct{}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID int64
	Role   string
}

// ContextIdentity retrieves the caller set by Authenticate.
func ContextIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Authenticate is a middleware that requires a valid bearer token.
// The caller is added to the request context; invalid or missing tokens get a 401.
func (s *Server) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			web.RespondError(w, s.logger, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			web.RespondError(w, s.logger, http.StatusUnauthorized, "Bearer token is required")
			return
		}
		claims, err := s.tokens.Verify(tokenString)
		if err != nil {
			s.logger.DebugContext(r.Context(), "Token rejected", "error", err)
			web.RespondError(w, s.logger, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		userID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			web.RespondError(w, s.logger, http.StatusUnauthorized, fmt.Sprintf("Invalid claim `sub`: %q", claims.Subject))
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, Identity{UserID: userID, Role: claims.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin answers 403 unless the authenticated caller is an admin.
func (s *Server) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := ContextIdentity(r.Context())
		if !ok || id.Role != RoleAdmin {
			s.logger.WarnContext(r.Context(), "Privileged call denied", "user_id", id.UserID)
			web.RespondError(w, s.logger, http.StatusForbidden, "Admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
