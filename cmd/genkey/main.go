// Command genkey creates an asymmetric signing key and prints it as .env
// lines for JWT_PRIVATE_KEY_PEM and JWT_KEY_ID.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jrsteele09/go-session-server/internal/config"
	"github.com/jrsteele09/go-session-server/token"
)

func main() {
	var (
		alg  = flag.String("alg", token.AlgES256, "signing algorithm: RS256, ES256, ES384 or ES512")
		kid  = flag.String("kid", config.DefaultJWTKeyID, "key id published in the JWKS and the token header")
		bits = flag.Int("bits", token.MinRSABits, "RSA modulus size, RS256 only")
	)
	flag.Parse()

	out, err := render(*kid, strings.ToUpper(*alg), *bits)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Print(out)
}

// render generates a key and formats it as a double-quoted multi-line .env value
func render(kid, alg string, bits int) (string, error) {
	if kid == "" {
		return "", errors.New("-kid must not be empty")
	}
	keyPair, err := token.GenerateKeyPair(kid, alg, bits)
	if err != nil {
		return "", err
	}
	pemData, err := keyPair.MarshalPrivateKeyPEM()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s signing key, generated by genkey\n", keyPair.Algorithm)
	fmt.Fprintf(&b, "JWT_KEY_ID=%s\n", keyPair.KeyID)
	fmt.Fprintf(&b, "JWT_PRIVATE_KEY_PEM=\"%s\"\n", strings.TrimRight(pemData, "\n"))
	return b.String(), nil
}
