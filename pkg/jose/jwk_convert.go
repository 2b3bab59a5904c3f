package jose

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
)

// JWKToPublicKey converts a decoded JWK (as a map[string]any, the shape a
// cnf.jwk or did document verificationMethod claim decodes to) into a Go
// public key. EC (P-256/P-384/P-521), RSA and OKP (Ed25519) keys are
// supported; the original EC-only conversion in this package did not cover
// RSA or OKP, which this module's RS256/EdDSA support requires.
func JWKToPublicKey(m map[string]any) (any, error) {
	kty, _ := m["kty"].(string)
	switch kty {
	case "EC":
		return jwkToECDSAPublicKey(m)
	case "RSA":
		return jwkToRSAPublicKey(m)
	case "OKP":
		return jwkToEd25519PublicKey(m)
	default:
		return nil, fmt.Errorf("jose: unsupported kty %q", kty)
	}
}

func jwkToECDSAPublicKey(m map[string]any) (*ecdsa.PublicKey, error) {
	crv, _ := m["crv"].(string)
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("jose: unsupported EC curve %q", crv)
	}

	x, err := decodeCoordinate(m, "x")
	if err != nil {
		return nil, err
	}
	y, err := decodeCoordinate(m, "y")
	if err != nil {
		return nil, err
	}

	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

func jwkToRSAPublicKey(m map[string]any) (*rsa.PublicKey, error) {
	nBytes, err := decodeBase64URLField(m, "n")
	if err != nil {
		return nil, err
	}
	eBytes, err := decodeBase64URLField(m, "e")
	if err != nil {
		return nil, err
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func jwkToEd25519PublicKey(m map[string]any) (ed25519.PublicKey, error) {
	crv, _ := m["crv"].(string)
	if crv != "Ed25519" {
		return nil, fmt.Errorf("jose: unsupported OKP curve %q", crv)
	}
	xBytes, err := decodeBase64URLField(m, "x")
	if err != nil {
		return nil, err
	}
	if len(xBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("jose: invalid Ed25519 public key length %d", len(xBytes))
	}
	return ed25519.PublicKey(xBytes), nil
}

func decodeCoordinate(m map[string]any, field string) (*big.Int, error) {
	b, err := decodeBase64URLField(m, field)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func decodeBase64URLField(m map[string]any, field string) ([]byte, error) {
	s, ok := m[field].(string)
	if !ok || s == "" {
		return nil, fmt.Errorf("jose: missing JWK field %q", field)
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("jose: decode JWK field %q: %w", field, err)
	}
	return b, nil
}

// PublicKeyToJWKMap converts a Go public key into the map[string]any form
// suitable for embedding as a cnf.jwk claim.
func PublicKeyToJWKMap(pub any) (map[string]any, error) {
	switch k := pub.(type) {
	case *ecdsa.PublicKey:
		size := (k.Curve.Params().BitSize + 7) / 8
		return map[string]any{
			"kty": "EC",
			"crv": k.Curve.Params().Name,
			"x":   base64.RawURLEncoding.EncodeToString(k.X.FillBytes(make([]byte, size))),
			"y":   base64.RawURLEncoding.EncodeToString(k.Y.FillBytes(make([]byte, size))),
		}, nil
	case *rsa.PublicKey:
		eBytes := big.NewInt(int64(k.E)).Bytes()
		return map[string]any{
			"kty": "RSA",
			"n":   base64.RawURLEncoding.EncodeToString(k.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(eBytes),
		}, nil
	case ed25519.PublicKey:
		return map[string]any{
			"kty": "OKP",
			"crv": "Ed25519",
			"x":   base64.RawURLEncoding.EncodeToString(k),
		}, nil
	default:
		return nil, fmt.Errorf("jose: unsupported public key type %T", pub)
	}
}
