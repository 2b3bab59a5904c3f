package sdjwt

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
)

// DefaultHashAlg is used when an issuer does not set _sd_alg explicitly and
// a verifier encounters a payload omitting it (Section 4.1.1 of the draft
// says verifiers MUST assume sha-256 in that case).
const DefaultHashAlg = "sha-256"

// hashAlgorithms is the closed set of digest algorithms this module
// accepts for _sd_alg. md5, sha-1 and anything not in this list are
// rejected with ErrUnsupportedAlgorithm.
var hashAlgorithms = map[string]func() hasher{
	"sha-256": func() hasher { return sha256.New() },
	"sha-384": func() hasher { return sha512.New384() },
	"sha-512": func() hasher { return sha512.New() },
}

// HashConstructor resolves a _sd_alg name to a hash constructor, rejecting
// anything outside the closed sha-256/sha-384/sha-512 set.
func HashConstructor(alg string) (func() hasher, error) {
	ctor, ok := hashAlgorithms[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
	return ctor, nil
}
