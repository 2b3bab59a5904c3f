package jose

import (
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"sdjwtcore/pkg/signing"
)

// LoadIssuerSigner reads a PEM-encoded EC or RSA private key from path and
// wraps it as a signing.Signer identified by keyID, the form an issuance
// service loads its key material in from a mounted secret rather than
// generating keys at runtime. EC keys are tried first since SD-JWT VC
// issuers overwhelmingly use ES256 in the ecosystem this module targets.
func LoadIssuerSigner(path, keyID string) (signing.Signer, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jose: read signing key %q: %w", path, err)
	}
	if len(pemBytes) == 0 {
		return nil, fmt.Errorf("jose: signing key %q is empty", path)
	}

	if ecKey, err := jwt.ParseECPrivateKeyFromPEM(pemBytes); err == nil {
		return signing.NewSoftwareSigner(ecKey, keyID)
	}

	if rsaKey, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes); err == nil {
		return signing.NewSoftwareSigner(rsaKey, keyID)
	}

	return nil, fmt.Errorf("jose: %q is not a PEM-encoded EC or RSA private key", path)
}

