// Package signing provides the cryptographic signing capability used to
// produce an SD-JWT's issuer JWS and a holder's Key Binding JWT. Callers
// plug a Signer into pkg/sdjwt.Issuer (issuer-side) or
// pkg/sdjwt.CreateKeyBindingJWT (holder-side) rather than handling raw
// private keys, so the same issuance/presentation code works whether the
// key lives in memory (SoftwareSigner) or behind an HSM.
package signing

import "context"

// Signer produces JWS signatures over SD-JWT signing input
// (base64url(header) + "." + base64url(payload)) and reports the JWS
// alg/kid header values that go alongside the signature.
type Signer interface {
	// Sign signs data (the JWS signing input) and returns the raw
	// signature bytes in JWS R||S (ECDSA) or PKCS#1v1.5 (RSA) form.
	Sign(ctx context.Context, data []byte) ([]byte, error)

	// Algorithm returns the JWS "alg" header value, e.g. "ES256", "RS256".
	Algorithm() string

	// KeyID returns the value to carry in the JWS "kid" header, used by a
	// verifier's IssuerKeyResolver to select among an issuer's keys.
	KeyID() string

	// PublicKey returns the public counterpart, for embedding in a "cnf"
	// confirmation claim (holder binding) or publishing for verifiers.
	PublicKey() any
}
