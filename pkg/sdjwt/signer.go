package sdjwt

import "context"

// Signer is the capability an Issuer or Holder needs to produce a JWS. It
// is intentionally narrow so that software keys, PKCS#11-backed HSM keys,
// or remote signing services can all implement it; see pkg/signing for
// concrete implementations.
type Signer interface {
	Sign(ctx context.Context, data []byte) ([]byte, error)
	Algorithm() string
	KeyID() string
	PublicKey() any
}
