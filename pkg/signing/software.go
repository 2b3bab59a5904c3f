package signing

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
)

// SoftwareSigner signs with an in-memory private key, the common case for
// an issuance service or test holder that doesn't delegate to an HSM. It
// picks its JWS algorithm from the key's own size/curve rather than
// requiring the caller to name one, so swapping in a larger RSA key or a
// P-384 curve changes the alg automatically.
type SoftwareSigner struct {
	privateKey crypto.Signer
	publicKey  any
	algorithm  string
	keyID      string
}

// NewSoftwareSigner wraps privateKey (either *rsa.PrivateKey or
// *ecdsa.PrivateKey) as a Signer identified by keyID.
func NewSoftwareSigner(privateKey any, keyID string) (*SoftwareSigner, error) {
	s := &SoftwareSigner{keyID: keyID}

	switch key := privateKey.(type) {
	case *rsa.PrivateKey:
		s.privateKey = key
		s.publicKey = &key.PublicKey
		s.algorithm = rsaAlgorithm(key)
	case *ecdsa.PrivateKey:
		s.privateKey = key
		s.publicKey = &key.PublicKey
		s.algorithm = ecdsaAlgorithm(key)
	default:
		return nil, fmt.Errorf("signing: unsupported private key type %T", privateKey)
	}

	return s, nil
}

// Sign implements Signer.
func (s *SoftwareSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	switch key := s.privateKey.(type) {
	case *rsa.PrivateKey:
		return signRSA(key, s.algorithm, data)
	case *ecdsa.PrivateKey:
		return signECDSA(key, s.algorithm, data)
	default:
		return nil, fmt.Errorf("signing: unsupported private key type %T", s.privateKey)
	}
}

// Algorithm implements Signer.
func (s *SoftwareSigner) Algorithm() string { return s.algorithm }

// KeyID implements Signer.
func (s *SoftwareSigner) KeyID() string { return s.keyID }

// PublicKey implements Signer.
func (s *SoftwareSigner) PublicKey() any { return s.publicKey }

// signRSA signs data with RSA PKCS#1 v1.5, the scheme the JWS RS256/384/512
// algs require.
func signRSA(key *rsa.PrivateKey, algorithm string, data []byte) ([]byte, error) {
	hash := hashForAlgorithm(algorithm)
	h := hash.New()
	h.Write(data)

	return rsa.SignPKCS1v15(rand.Reader, key, hash, h.Sum(nil))
}

// signECDSA signs data with ECDSA and packs (r, s) into the fixed-width
// R||S encoding JWS ES256/384/512 require, rather than ASN.1 DER.
func signECDSA(key *ecdsa.PrivateKey, algorithm string, data []byte) ([]byte, error) {
	hash := hashForAlgorithm(algorithm)
	h := hash.New()
	h.Write(data)

	r, sVal, err := ecdsa.Sign(rand.Reader, key, h.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("signing: ecdsa sign: %w", err)
	}

	keyBytes := (key.Curve.Params().BitSize + 7) / 8
	sig := make([]byte, 2*keyBytes)

	rBytes := r.Bytes()
	sBytes := sVal.Bytes()
	copy(sig[keyBytes-len(rBytes):keyBytes], rBytes)
	copy(sig[2*keyBytes-len(sBytes):], sBytes)

	return sig, nil
}

// rsaAlgorithm picks a JWS RS alg sized to the key, larger keys getting a
// stronger hash rather than pairing a 4096-bit key with SHA-256.
func rsaAlgorithm(key *rsa.PrivateKey) string {
	switch keySize := key.N.BitLen(); {
	case keySize >= 4096:
		return "RS512"
	case keySize >= 3072:
		return "RS384"
	default:
		return "RS256"
	}
}

// ecdsaAlgorithm picks the JWS ES alg matching the key's curve.
func ecdsaAlgorithm(key *ecdsa.PrivateKey) string {
	switch key.Curve.Params().BitSize {
	case 384:
		return "ES384"
	case 521:
		return "ES512"
	default:
		return "ES256"
	}
}

// hashForAlgorithm returns the digest algorithm a JWS alg name implies.
func hashForAlgorithm(algorithm string) crypto.Hash {
	switch algorithm {
	case "RS384", "ES384":
		return crypto.SHA384
	case "RS512", "ES512":
		return crypto.SHA512
	default:
		return crypto.SHA256
	}
}
