package token

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Asymmetric signing algorithms a KeyPair can carry. RSA keys always sign
// with RS256; the ECDSA algorithm follows from the curve.
const (
	AlgRS256 = "RS256"
	AlgES256 = "ES256"
	AlgES384 = "ES384"
	AlgES512 = "ES512"
)

const MinRSABits = 2048

var ecdsaCurves = map[string]elliptic.Curve{
	AlgES256: elliptic.P256(),
	AlgES384: elliptic.P384(),
	AlgES512: elliptic.P521(),
}

// KeyPair is an asymmetric signing key with its published key id
type KeyPair struct {
	KeyID      string
	PrivateKey crypto.PrivateKey
	PublicKey  crypto.PublicKey
	Algorithm  string
}

// JWKS is the document served at /.well-known/jwks.json
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK is a public verification key. N and E are set for RSA keys,
// Crv, X and Y for EC keys.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`

	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// GenerateKeyPair creates a fresh signing key. rsaBits only applies to RS256.
func GenerateKeyPair(keyID, alg string, rsaBits int) (*KeyPair, error) {
	if alg == AlgRS256 {
		if rsaBits < MinRSABits {
			return nil, errors.Errorf("RSA keys need at least %d bits, got %d", MinRSABits, rsaBits)
		}
		key, err := rsa.GenerateKey(rand.Reader, rsaBits)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate RSA key")
		}
		return newKeyPair(keyID, key)
	}

	curve, ok := ecdsaCurves[alg]
	if !ok {
		return nil, errors.Errorf("unsupported signing algorithm %q", alg)
	}
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to generate %s key", alg)
	}
	return newKeyPair(keyID, key)
}

// LoadKeyPairFromPEM accepts an RSA or ECDSA private key in PKCS1, SEC1 or PKCS8 form
func LoadKeyPairFromPEM(keyID, pemData string) (*KeyPair, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	var (
		key any
		err error
	)
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", block.Type)
	}
	return newKeyPair(keyID, key)
}

func newKeyPair(keyID string, key any) (*KeyPair, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return &KeyPair{KeyID: keyID, PrivateKey: k, PublicKey: &k.PublicKey, Algorithm: AlgRS256}, nil
	case *ecdsa.PrivateKey:
		for alg, curve := range ecdsaCurves {
			if k.Curve == curve {
				return &KeyPair{KeyID: keyID, PrivateKey: k, PublicKey: &k.PublicKey, Algorithm: alg}, nil
			}
		}
		return nil, errors.Errorf("unsupported curve %s", k.Curve.Params().Name)
	default:
		return nil, errors.Errorf("unsupported private key type %T", key)
	}
}

func (kp *KeyPair) GetSigningMethod() jwt.SigningMethod {
	if method := jwt.GetSigningMethod(kp.Algorithm); method != nil {
		return method
	}
	return jwt.SigningMethodRS256
}

// MarshalPrivateKeyPEM encodes the private key as a PKCS8 "PRIVATE KEY" block,
// the form JWT_PRIVATE_KEY_PEM expects.
func (kp *KeyPair) MarshalPrivateKeyPEM() (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(kp.PrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal private key")
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

func (kp *KeyPair) ToJWK() (*JWK, error) {
	jwk := &JWK{Kid: kp.KeyID, Use: "sig", Alg: kp.Algorithm}

	switch pub := kp.PublicKey.(type) {
	case *rsa.PublicKey:
		jwk.Kty = "RSA"
		jwk.N = encodeSegment(pub.N.Bytes())
		jwk.E = encodeSegment(big.NewInt(int64(pub.E)).Bytes())
	case *ecdsa.PublicKey:
		params := pub.Curve.Params()
		size := (params.BitSize + 7) / 8
		jwk.Kty = "EC"
		jwk.Crv = params.Name
		jwk.X = encodeSegment(pub.X.FillBytes(make([]byte, size)))
		jwk.Y = encodeSegment(pub.Y.FillBytes(make([]byte, size)))
	default:
		return nil, errors.Errorf("unsupported public key type %T", kp.PublicKey)
	}
	return jwk, nil
}

func encodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
