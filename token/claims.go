package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes access tokens from refresh tokens sharing the same codec
type TokenType string

const (
	AccessTokenType  TokenType = "access"
	RefreshTokenType TokenType = "refresh"
)

// Claims is the decoded payload of an access or refresh token.
// Times carry second precision, matching the wire format.
type Claims struct {
	ID        string    // jti: unique token id, the refresh record id for refresh tokens
	Subject   string    // sub: user id
	Role      string    // role: access tokens only
	Email     string    // email: access tokens only
	Name      string    // name: access tokens only
	DeviceID  string    // did: refresh tokens only, optional
	Type      TokenType // typ
	Issuer    string    // iss
	IssuedAt  time.Time // iat
	ExpiresAt time.Time // exp
}

func (c Claims) toMapClaims() jwt.MapClaims {
	claims := jwt.MapClaims{
		"sub": c.Subject,
		"typ": string(c.Type),
		"iat": jwt.NewNumericDate(c.IssuedAt),
		"exp": jwt.NewNumericDate(c.ExpiresAt),
	}
	if c.ID != "" {
		claims["jti"] = c.ID
	}
	if c.Issuer != "" {
		claims["iss"] = c.Issuer
	}
	if c.Role != "" {
		claims["role"] = c.Role
	}
	if c.Email != "" {
		claims["email"] = c.Email
	}
	if c.Name != "" {
		claims["name"] = c.Name
	}
	if c.DeviceID != "" {
		claims["did"] = c.DeviceID
	}
	return claims
}

func claimsFromMap(m jwt.MapClaims) (*Claims, bool) {
	sub, err := m.GetSubject()
	if err != nil || sub == "" {
		return nil, false
	}
	exp, err := m.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, false
	}
	iat, err := m.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, false
	}
	typ, _ := m["typ"].(string)
	if typ == "" {
		return nil, false
	}
	iss, _ := m.GetIssuer()

	jti, _ := m["jti"].(string)
	role, _ := m["role"].(string)
	email, _ := m["email"].(string)
	name, _ := m["name"].(string)
	did, _ := m["did"].(string)

	return &Claims{
		ID:        jti,
		Subject:   sub,
		Role:      role,
		Email:     email,
		Name:      name,
		DeviceID:  did,
		Type:      TokenType(typ),
		Issuer:    iss,
		IssuedAt:  iat.Time.UTC(),
		ExpiresAt: exp.Time.UTC(),
	}, true
}
