// README: Identity provider adapter. Resolves a bearer token to {identityId, role};
// the core trusts this result and only enforces role/ownership checks.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"raahi/internal/types"
)

type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

type Identity struct {
	ID   types.ID
	Role Role
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownRole  = errors.New("unknown role claim")
)

// Verifier resolves a caller token to an identity.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// JWTVerifier validates HS256 tokens carrying "sub" and "role" claims.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	switch Role(role) {
	case RoleRider, RoleDriver, RoleVendor, RoleAdmin:
	default:
		return Identity{}, ErrUnknownRole
	}
	return Identity{ID: types.ID(sub), Role: Role(role)}, nil
}

// Sign issues an HS256 token for id/role. Used by tests and local tooling;
// production tokens come from the external identity service with the same
// shared secret.
func Sign(secret string, id types.ID, role Role, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  string(id),
		"role": string(role),
		"exp":  time.Now().UTC().Add(ttl).Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
