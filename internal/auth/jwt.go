package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT claims used by this service. The identity fields
// are issued by the session service; this core only authorizes.
type Claims struct {
	Role      string `json:"role"`
	StationID string `json:"station_id,omitempty"`
	DealerID  string `json:"dealer_id,omitempty"`
	OMCID     string `json:"omc_id,omitempty"`
	jwt.RegisteredClaims
}

// ParseJWT validates a JWT and returns claims.
func ParseJWT(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("auth: empty token")
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, ok := NormalizeRole(claims.Role); !ok {
		return nil, errors.New("auth: invalid role")
	}
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
		return nil, errors.New("auth: token expired")
	}
	return claims, nil
}

// IdentityFromClaims builds a trusted identity from validated claims.
func IdentityFromClaims(claims *Claims) Identity {
	if claims == nil {
		return Identity{}
	}
	role, _ := NormalizeRole(claims.Role)
	return Identity{
		Subject:   claims.Subject,
		Role:      role,
		StationID: claims.StationID,
		DealerID:  claims.DealerID,
		OMCID:     claims.OMCID,
	}
}
