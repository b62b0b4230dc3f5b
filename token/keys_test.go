package token_test

import (
	"testing"

	"github.com/jrsteele09/go-session-server/internal/config"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/stretchr/testify/require"
)

func TestKeyPairSignerRoundTripAndJWKS(t *testing.T) {
	for _, alg := range []string{token.AlgRS256, token.AlgES256, token.AlgES384, token.AlgES512} {
		t.Run(alg, func(t *testing.T) {
			keyPair, err := token.GenerateKeyPair("key-"+alg, alg, token.MinRSABits)
			require.NoError(t, err)
			require.Equal(t, alg, keyPair.Algorithm)
			require.Equal(t, alg, keyPair.GetSigningMethod().Alg())

			c := &clock{now: testStart}
			svc := token.NewService(token.NewCodec(token.NewKeyPairSigner(keyPair)), token.WithNowFunc(c.Now))

			access, err := svc.IssueAccessToken(testSubject())
			require.NoError(t, err)
			require.True(t, svc.VerifyAccess(access.Token).Valid())

			jwks, err := svc.JWKS()
			require.NoError(t, err)
			require.Len(t, jwks.Keys, 1)
			require.Equal(t, keyPair.KeyID, jwks.Keys[0].Kid)
			require.Equal(t, keyPair.Algorithm, jwks.Keys[0].Alg)
		})
	}
}

func TestGenerateKeyPairRejects(t *testing.T) {
	_, err := token.GenerateKeyPair("k", token.AlgRS256, 1024)
	require.ErrorContains(t, err, "at least 2048 bits")

	_, err = token.GenerateKeyPair("k", "HS256", 0)
	require.ErrorContains(t, err, "unsupported signing algorithm")
}

func TestLoadKeyPairFromPEM(t *testing.T) {
	original, err := token.GenerateKeyPair("ec-key", token.AlgES384, 0)
	require.NoError(t, err)
	pemData, err := original.MarshalPrivateKeyPEM()
	require.NoError(t, err)
	require.Contains(t, pemData, "BEGIN PRIVATE KEY")

	loaded, err := token.LoadKeyPairFromPEM("ec-key", pemData)
	require.NoError(t, err)
	require.Equal(t, token.AlgES384, loaded.Algorithm)

	// Tokens signed with the original verify with the loaded key
	c := &clock{now: testStart}
	signedBy := token.NewService(token.NewCodec(token.NewKeyPairSigner(original)), token.WithNowFunc(c.Now))
	verifiedBy := token.NewService(token.NewCodec(token.NewKeyPairSigner(loaded)), token.WithNowFunc(c.Now))
	access, err := signedBy.IssueAccessToken(testSubject())
	require.NoError(t, err)
	require.True(t, verifiedBy.VerifyAccess(access.Token).Valid())

	_, err = token.LoadKeyPairFromPEM("x", "not pem")
	require.Error(t, err)
}

func TestJWKSUnavailableForHMAC(t *testing.T) {
	svc := newTestService(t, &clock{now: testStart})
	_, err := svc.JWKS()
	require.Error(t, err)
}

func TestNewSignerFromConfig(t *testing.T) {
	t.Setenv("JWT_PRIVATE_KEY_PEM", "")
	t.Setenv("JWT_SECRET", "too-short")
	_, err := token.NewSignerFromConfig(config.Tokens{})
	require.Error(t, err)

	t.Setenv("JWT_SECRET", testSecret)
	signer, err := token.NewSignerFromConfig(config.Tokens{})
	require.NoError(t, err)
	require.IsType(t, &token.HMACSigner{}, signer)

	keyPair, err := token.GenerateKeyPair("rsa-key", token.AlgRS256, token.MinRSABits)
	require.NoError(t, err)
	pemData, err := keyPair.MarshalPrivateKeyPEM()
	require.NoError(t, err)
	t.Setenv("JWT_PRIVATE_KEY_PEM", pemData)
	signer, err = token.NewSignerFromConfig(config.Tokens{})
	require.NoError(t, err)
	require.IsType(t, &token.KeyPairSigner{}, signer)

	t.Setenv("JWT_PRIVATE_KEY_PEM", "")
	t.Setenv("JWT_SECRET", "")
	signer, err = token.NewSignerFromConfig(config.Tokens{})
	require.NoError(t, err)
	require.IsType(t, &token.HMACSigner{}, signer)
}
