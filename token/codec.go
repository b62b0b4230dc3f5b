package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
)

// Codec encodes claims into compact signed JWTs and decodes them back.
// It checks structure and signature only; expiry is the Service's concern.
type Codec struct {
	signer Signer
	parser *jwt.Parser
}

// NewCodec creates a codec bound to a single signer
func NewCodec(signer Signer) *Codec {
	return &Codec{
		signer: signer,
		parser: jwt.NewParser(
			jwt.WithoutClaimsValidation(),
			jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
		),
	}
}

// Signer returns the signer the codec was built with
func (c *Codec) Signer() Signer {
	return c.signer
}

// Encode signs the claims
func (c *Codec) Encode(claims Claims) (string, error) {
	signed, err := c.signer.Sign(claims.toMapClaims())
	if err != nil {
		return "", fmt.Errorf("failed to encode token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and returns the claims. Errors wrap
// ErrMalformedToken or ErrInvalidSignature.
func (c *Codec) Decode(raw string) (*Claims, error) {
	parsed, err := c.parser.ParseWithClaims(raw, jwt.MapClaims{}, c.signer.GetVerificationKey)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %w", autherrors.ErrInvalidSignature, err)
		default:
			return nil, fmt.Errorf("%w: %w", autherrors.ErrMalformedToken, err)
		}
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", autherrors.ErrMalformedToken)
	}

	claims, ok := claimsFromMap(mapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: missing required claims", autherrors.ErrMalformedToken)
	}
	return claims, nil
}
