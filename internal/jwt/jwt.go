package jwt

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/monitoringhub/auth-service/internal/models"
)

// Verification and authorization errors. Verify failures map to 401 at the
// transport; ErrInsufficientRole maps to 403.
var (
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenMalformed     = errors.New("token malformed")
	ErrSignatureInvalid   = errors.New("token signature invalid")
	ErrInsufficientRole   = errors.New("insufficient role")
	ErrNoAuthorizationHdr = errors.New("authorization header missing")
)

// Claims is the decoded claim set of an identity token.
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JWT issues and verifies signed, time-bounded identity tokens.
// Tokens are stateless: validity is computed from the signature and the
// embedded timestamps, never looked up.
type JWT struct {
	SecretKey string        // Secret key for signing tokens
	Exp       time.Duration // Token expiration duration
}

// New creates a new JWT instance.
func New(secretKey string, expiration time.Duration) *JWT {
	return &JWT{
		SecretKey: secretKey,
		Exp:       expiration,
	}
}

// Generate creates a signed HS256 token embedding the user's identity and
// role. Claims are signed but not encrypted; treat them as visible.
func (j *JWT) Generate(ctx context.Context, user models.AuthUser) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":  user.ID.String(),
		"username": user.Username,
		"role":     user.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(j.Exp).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.SecretKey))
}

// Verify validates the token signature and expiry and returns the decoded
// claims. The signature is checked before expiry, so a tampered token is
// always reported as ErrSignatureInvalid even when also expired.
func (j *JWT) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(j.SecretKey), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenMalformed
		}
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claimsFromMap(mapClaims)
}

// Authorize verifies rawToken (with an optional "Bearer " prefix) and, when
// requiredRole is non-empty, enforces it. It has no side effects beyond
// returning the claims for the caller to attach to the request context.
//
// Checks run in a fixed order: authenticate first, then role. A role
// mismatch on a token that fails verification is therefore always reported
// as a verification error, never as ErrInsufficientRole.
func (j *JWT) Authorize(ctx context.Context, rawToken, requiredRole string) (*Claims, error) {
	claims, err := j.Verify(ctx, StripBearer(rawToken))
	if err != nil {
		return nil, err
	}
	if requiredRole != "" && claims.Role != requiredRole {
		return nil, ErrInsufficientRole
	}
	return claims, nil
}

// GetTokenFromRequest extracts the raw token from the Authorization header.
func (j *JWT) GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoAuthorizationHdr
	}
	return StripBearer(authHeader), nil
}

// StripBearer removes a leading "Bearer " scheme, case-insensitively.
// Tokens sent without the scheme are returned unchanged.
func StripBearer(raw string) string {
	parts := strings.Fields(raw)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return strings.TrimSpace(raw)
}

func claimsFromMap(m jwt.MapClaims) (*Claims, error) {
	userIDStr, ok := m["user_id"].(string)
	if !ok {
		return nil, ErrTokenMalformed
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrTokenMalformed
	}

	username, ok := m["username"].(string)
	if !ok {
		return nil, ErrTokenMalformed
	}
	role, ok := m["role"].(string)
	if !ok {
		return nil, ErrTokenMalformed
	}

	// Numeric claims decode as float64 from JSON.
	iat, ok := m["iat"].(float64)
	if !ok {
		return nil, ErrTokenMalformed
	}
	exp, ok := m["exp"].(float64)
	if !ok {
		return nil, ErrTokenMalformed
	}

	return &Claims{
		UserID:    userID,
		Username:  username,
		Role:      role,
		IssuedAt:  time.Unix(int64(iat), 0),
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}
