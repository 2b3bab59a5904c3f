package sdjwt

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"
)

// ParseIssued splits an issued (unpresented or already-presented) SD-JWT
// into its issuer JWT and decoded Disclosures, so a Holder can decide which
// claims to reveal.
func ParseIssued(token string) (issuerJWT string, disclosures []Disclosure, err error) {
	jwtPart, encoded, _, err := splitPresentation(token)
	if err != nil {
		return "", nil, err
	}

	disclosures = make([]Disclosure, 0, len(encoded))
	for _, e := range encoded {
		d, err := DecodeDisclosure(e)
		if err != nil {
			return "", nil, err
		}
		disclosures = append(disclosures, *d)
	}
	return jwtPart, disclosures, nil
}

// SelectByClaimNames returns the subset of disclosures whose ClaimName
// matches one of names. Array-element disclosures (which have no claim
// name) are never selected by this helper; callers that need to reveal an
// array element keep the original Disclosure value directly.
func SelectByClaimNames(disclosures []Disclosure, names ...string) []Disclosure {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var out []Disclosure
	for _, d := range disclosures {
		if !d.IsArray && want[d.ClaimName] {
			out = append(out, d)
		}
	}
	return out
}

// Present re-combines an issuer JWT with the chosen disclosures and an
// optional Key Binding JWT into the wire format handed to a verifier.
func Present(issuerJWT string, disclosures []Disclosure, keyBindingJWT string) (string, error) {
	encoded := make([]string, 0, len(disclosures))
	for _, d := range disclosures {
		s, err := d.Encode()
		if err != nil {
			return "", err
		}
		encoded = append(encoded, s)
	}
	return Combine(issuerJWT, encoded, keyBindingJWT), nil
}

// KeyBindingTypHeader is the required "typ" header value for Key Binding
// JWTs (Section 4.3 of the draft).
const KeyBindingTypHeader = "kb+jwt"

// CreateKeyBindingJWT builds and signs a Key Binding JWT over a
// presentation that has not yet had one appended. presented must be the
// "<jwt>~<d1>~...~<dn>~" string exactly as it will be sent to the
// verifier (sd_hash commits to this prefix, including the trailing "~").
func CreateKeyBindingJWT(ctx context.Context, presented, nonce, audience string, holderSigner Signer, hashAlg string) (string, error) {
	if hashAlg == "" {
		hashAlg = DefaultHashAlg
	}
	hashCtor, err := HashConstructor(hashAlg)
	if err != nil {
		return "", err
	}

	sdHash, err := sdHashOf(presented, hashCtor)
	if err != nil {
		return "", err
	}

	claims := map[string]any{
		"aud":     audience,
		"nonce":   nonce,
		"iat":     time.Now().Unix(),
		"sd_hash": sdHash,
	}
	header := map[string]any{"typ": KeyBindingTypHeader}

	return signJWS(ctx, header, claims, holderSigner)
}

// sdHashOf computes the digest of a presentation prefix for use as
// sd_hash in a Key Binding JWT.
func sdHashOf(presented string, hashCtor func() hasher) (string, error) {
	h := hashCtor()
	if _, err := h.Write([]byte(presented)); err != nil {
		return "", fmt.Errorf("sdjwt: hash presentation: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}
