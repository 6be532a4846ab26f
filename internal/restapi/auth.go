package restapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/terra-clan/projecthub/internal/models"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned when a bearer token cannot be verified
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the verified content of an access token
type Claims struct {
	UserID    string
	Email     string
	Role      models.Role
	ExpiresAt time.Time
}

// Permissions returns the permission set granted by the token role
func (c *Claims) Permissions() []string {
	return (&models.Account{Role: c.Role}).Permissions()
}

// Auth issues and verifies HS256 access tokens and hashes passwords
type Auth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuth creates an Auth signing with secret
func NewAuth(secret string, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken signs an access token for the account
func (a *Auth) GenerateToken(account *models.Account) (string, error) {
	if account.ID == "" || account.Email == "" {
		return "", errors.New("required inputs are missing to generate token")
	}

	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": account.ID,
		"email":   account.Email,
		"role":    string(account.Role),
		"iat":     now.Unix(),
		"exp":     now.Add(a.ttl).Unix(),
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", errors.New("unable to sign the token")
	}
	return signed, nil
}

// VerifyToken checks signature and expiry. A "Bearer " prefix is accepted.
func (a *Auth) VerifyToken(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	claims.UserID, _ = mc["user_id"].(string)
	claims.Email, _ = mc["email"].(string)
	role, _ := mc["role"].(string)
	claims.Role = models.Role(role)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// HashPassword hashes a plain password with bcrypt
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword compares a plain password with its hash
func VerifyPassword(plain, hashed string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// AuthMiddleware verifies bearer tokens and enforces permissions
type AuthMiddleware struct {
	auth    *Auth
	enforce bool
}

// NewAuthMiddleware creates auth middleware. With enforce off, missing
// tokens and permissions are tolerated and the admin endpoints are open.
func NewAuthMiddleware(auth *Auth, enforce bool) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, enforce: enforce}
}

// Authenticate verifies a bearer token when one is presented
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.auth.VerifyToken(header)
		if err != nil {
			slog.Warn("invalid token attempt", "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "invalid_token", "the provided token is not valid")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// RequirePermission returns middleware that checks for a specific permission
func (m *AuthMiddleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.enforce {
				next.ServeHTTP(w, r)
				return
			}

			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				respondError(w, http.StatusUnauthorized, "not_authenticated", "authentication required")
				return
			}

			if !models.HasPermission(claims.Permissions(), permission) {
				slog.Warn("permission denied",
					"user", claims.UserID,
					"role", claims.Role,
					"required", permission,
				)
				respondError(w, http.StatusForbidden, "permission_denied",
					"account does not have required permission: "+permission)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
