//go:build !pkcs11

package signing

import (
	"context"
	"errors"
)

// PKCS11Config mirrors the HSM-backed config in pkcs11.go so callers can
// reference an issuer's HSM key settings regardless of build tag.
type PKCS11Config struct {
	ModulePath string
	SlotID     uint
	PIN        string
	KeyLabel   string
	KeyID      string
}

// PKCS11Signer is a stub standing in for the HSM-backed issuer signer
// when PKCS#11 support is not compiled in.
type PKCS11Signer struct{}

// ErrPKCS11NotSupported is returned when PKCS#11 support is not compiled in.
var ErrPKCS11NotSupported = errors.New("PKCS#11 support not compiled in; rebuild with -tags=pkcs11")

// NewPKCS11Signer always fails in the default build; deployments that
// issue credentials from an HSM-held key must build with -tags=pkcs11.
func NewPKCS11Signer(config *PKCS11Config) (*PKCS11Signer, error) {
	return nil, ErrPKCS11NotSupported
}

// Sign is not supported without PKCS#11.
func (s *PKCS11Signer) Sign(ctx context.Context, data []byte) ([]byte, error) {
	return nil, ErrPKCS11NotSupported
}

// Algorithm is not supported without PKCS#11.
func (s *PKCS11Signer) Algorithm() string {
	return ""
}

// KeyID is not supported without PKCS#11.
func (s *PKCS11Signer) KeyID() string {
	return ""
}

// PublicKey is not supported without PKCS#11.
func (s *PKCS11Signer) PublicKey() any {
	return nil
}

// Close is a no-op without PKCS#11.
func (s *PKCS11Signer) Close() error {
	return nil
}
