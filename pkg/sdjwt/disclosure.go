package sdjwt

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// saltBytes is the number of random bytes used for a disclosure salt,
// giving at least 128 bits of entropy per draft-ietf-oauth-selective-
// disclosure-jwt Section 4.2.1.
const saltBytes = 16

// Disclosure is a single selectively disclosable claim: an object property
// ([salt, claimName, value]) or an array element ([salt, value]) per
// Section 5.2 of the draft.
type Disclosure struct {
	Salt      string
	ClaimName string // empty for an array-element disclosure
	Value     any
	IsArray   bool
}

// NewSalt returns a fresh, base64url-encoded random salt.
func NewSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sdjwt: generate salt: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Encode serializes the disclosure to its base64url JSON array form.
func (d Disclosure) Encode() (string, error) {
	var arr []any
	if d.IsArray {
		arr = []any{d.Salt, d.Value}
	} else {
		if d.ClaimName == "" {
			return "", fmt.Errorf("%w: object disclosure missing claim name", ErrMalformedDisclosure)
		}
		arr = []any{d.Salt, d.ClaimName, d.Value}
	}

	b, err := json.Marshal(arr)
	if err != nil {
		return "", fmt.Errorf("sdjwt: encode disclosure: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Digest hashes the encoded disclosure with the given hash constructor,
// returning the base64url-encoded digest used as the _sd array entry.
func (d Disclosure) Digest(newHash func() hasher) (string, error) {
	encoded, err := d.Encode()
	if err != nil {
		return "", err
	}
	return digestString(encoded, newHash)
}

// digestString hashes an already-encoded disclosure string.
func digestString(encoded string, newHash func() hasher) (string, error) {
	h := newHash()
	if _, err := h.Write([]byte(encoded)); err != nil {
		return "", fmt.Errorf("sdjwt: hash disclosure: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

// hasher is the subset of hash.Hash this package depends on.
type hasher interface {
	Write(p []byte) (int, error)
	Sum(b []byte) []byte
}

// DecodeDisclosure parses a base64url-encoded disclosure string into its
// structured form, accepting both the 2-element (array) and 3-element
// (object) forms.
func DecodeDisclosure(raw string) (*Disclosure, error) {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDisclosure, err)
	}

	var arr []any
	if err := json.Unmarshal(b, &arr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDisclosure, err)
	}

	switch len(arr) {
	case 2:
		salt, ok := arr[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: salt is not a string", ErrMalformedDisclosure)
		}
		return &Disclosure{Salt: salt, Value: arr[1], IsArray: true}, nil
	case 3:
		salt, ok := arr[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: salt is not a string", ErrMalformedDisclosure)
		}
		name, ok := arr[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: claim name is not a string", ErrMalformedDisclosure)
		}
		if isReservedClaimName(name) {
			return nil, fmt.Errorf("%w: %s", ErrReservedKey, name)
		}
		return &Disclosure{Salt: salt, ClaimName: name, Value: arr[2]}, nil
	default:
		return nil, fmt.Errorf("%w: expected 2 or 3 elements, got %d", ErrMalformedDisclosure, len(arr))
	}
}

func isReservedClaimName(name string) bool {
	switch name {
	case "_sd", "_sd_alg", "...":
		return true
	default:
		return false
	}
}
