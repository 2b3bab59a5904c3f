package sdjwt

import (
	"context"
	"fmt"
	"time"

	"sdjwtcore/pkg/jose"
)

// IssuerKeyResolver resolves the public key an issuer used to sign an
// SD-JWT. kid may be empty if the JWS header carried none.
type IssuerKeyResolver interface {
	ResolveKey(ctx context.Context, issuerID, kid string) (any, error)
}

// VerificationOptions configures Verify.
type VerificationOptions struct {
	// RequireKeyBinding rejects a presentation with no Key Binding JWT.
	RequireKeyBinding bool

	// ExpectedNonce, when non-empty, must match the Key Binding JWT's nonce.
	ExpectedNonce string

	// ExpectedAudience, when non-empty, must match the Key Binding JWT's aud.
	ExpectedAudience string

	// AllowedClockSkew is subtracted/added when checking exp/nbf/iat.
	AllowedClockSkew time.Duration

	// Clock is used for time validation; defaults to SystemClock{}.
	Clock Clock
}

// VerificationResult is the outcome of a successful Verify call. Verify
// never returns a partially-populated result alongside an error.
type VerificationResult struct {
	Header           map[string]any
	Claims           map[string]any
	Disclosures      []Disclosure
	KeyBindingClaims map[string]any
}

// Verify implements the full SD-JWT verification algorithm: signature,
// time validity, algorithm restriction, disclosure integrity (including
// nested _sd arrays and array-element markers at any depth), duplicate and
// unused disclosure rejection, and optional Key Binding JWT verification.
func Verify(ctx context.Context, presented string, issuerID string, resolver IssuerKeyResolver, opts VerificationOptions) (*VerificationResult, error) {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	issuerJWT, encodedDisclosures, keyBindingJWT, err := splitPresentation(presented)
	if err != nil {
		return nil, err
	}

	header, claims, signingInput, sigB64, err := splitJWS(issuerJWT)
	if err != nil {
		return nil, err
	}

	alg, _ := header["alg"].(string)
	kid, _ := header["kid"].(string)

	publicKey, err := resolver.ResolveKey(ctx, issuerID, kid)
	if err != nil {
		return nil, fmt.Errorf("sdjwt: resolve issuer key: %w", err)
	}
	if err := verifyJWSSignature(signingInput, sigB64, alg, publicKey); err != nil {
		return nil, err
	}

	if err := checkTimeValidity(claims, clock.Now(), opts.AllowedClockSkew); err != nil {
		return nil, err
	}

	hashAlg, _ := claims["_sd_alg"].(string)
	if hashAlg == "" {
		hashAlg = DefaultHashAlg
	}
	hashCtor, err := HashConstructor(hashAlg)
	if err != nil {
		return nil, err
	}

	disclosures := make([]Disclosure, 0, len(encodedDisclosures))
	byDigest := make(map[string]*trackedDisclosure, len(encodedDisclosures))
	seenRaw := make(map[string]bool, len(encodedDisclosures))
	for _, raw := range encodedDisclosures {
		if seenRaw[raw] {
			return nil, ErrDuplicateDisclosure
		}
		seenRaw[raw] = true

		d, err := DecodeDisclosure(raw)
		if err != nil {
			return nil, err
		}
		digest, err := digestString(raw, hashCtor)
		if err != nil {
			return nil, err
		}
		if _, exists := byDigest[digest]; exists {
			return nil, ErrDuplicateDisclosure
		}
		byDigest[digest] = &trackedDisclosure{d: *d}
		disclosures = append(disclosures, *d)
	}

	if err := reconstructClaims(claims, byDigest); err != nil {
		return nil, err
	}
	for _, td := range byDigest {
		if !td.used {
			return nil, ErrUnusedDisclosure
		}
	}

	result := &VerificationResult{
		Header:      header,
		Claims:      claims,
		Disclosures: disclosures,
	}

	if keyBindingJWT == "" {
		if opts.RequireKeyBinding {
			return nil, ErrKeyBindingRequired
		}
		return result, nil
	}

	kbClaims, err := verifyKeyBindingJWT(issuerJWT, encodedDisclosures, keyBindingJWT, claims, hashCtor, opts, clock.Now())
	if err != nil {
		return nil, err
	}
	result.KeyBindingClaims = kbClaims

	return result, nil
}

func checkTimeValidity(claims map[string]any, now time.Time, skew time.Duration) error {
	if exp, ok := numericClaim(claims, "exp"); ok {
		if now.After(time.Unix(exp, 0).Add(skew)) {
			return ErrExpired
		}
	}
	if nbf, ok := numericClaim(claims, "nbf"); ok {
		if now.Before(time.Unix(nbf, 0).Add(-skew)) {
			return ErrNotYetValid
		}
	}
	if iat, ok := numericClaim(claims, "iat"); ok {
		if now.Before(time.Unix(iat, 0).Add(-skew)) {
			return ErrNotYetValid
		}
	}
	return nil
}

func numericClaim(claims map[string]any, key string) (int64, bool) {
	v, ok := claims[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// verifyKeyBindingJWT resolves the holder key from cnf.jwk, verifies the
// Key Binding JWT's signature, typ, sd_hash, audience and nonce.
func verifyKeyBindingJWT(issuerJWT string, encodedDisclosures []string, kbJWT string, claims map[string]any, hashCtor func() hasher, opts VerificationOptions, now time.Time) (map[string]any, error) {
	holderKey, err := holderKeyFromCNF(claims)
	if err != nil {
		return nil, err
	}

	header, kbClaims, signingInput, sigB64, err := splitJWS(kbJWT)
	if err != nil {
		return nil, err
	}

	if typ, _ := header["typ"].(string); typ != KeyBindingTypHeader {
		return nil, fmt.Errorf("%w: typ is %q, want %q", ErrKeyBindingInvalidSignature, typ, KeyBindingTypHeader)
	}

	alg, _ := header["alg"].(string)
	if err := verifyJWSSignature(signingInput, sigB64, alg, holderKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyBindingInvalidSignature, err)
	}

	presentedPrefix := Combine(issuerJWT, encodedDisclosures, "")
	wantHash, err := sdHashOf(presentedPrefix, hashCtor)
	if err != nil {
		return nil, err
	}
	gotHash, _ := kbClaims["sd_hash"].(string)
	if gotHash != wantHash {
		return nil, ErrKeyBindingMismatch
	}

	if opts.ExpectedAudience != "" {
		if aud, _ := kbClaims["aud"].(string); aud != opts.ExpectedAudience {
			return nil, ErrKeyBindingBadAudience
		}
	}
	if opts.ExpectedNonce != "" {
		if nonce, _ := kbClaims["nonce"].(string); nonce != opts.ExpectedNonce {
			return nil, ErrKeyBindingBadNonce
		}
	}

	return kbClaims, nil
}

// holderKeyFromCNF extracts and converts the holder's public key from the
// issuer-set cnf.jwk claim.
func holderKeyFromCNF(claims map[string]any) (any, error) {
	cnf, ok := claims["cnf"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing cnf claim", ErrKeyBindingRequired)
	}
	jwkMap, ok := cnf["jwk"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing cnf.jwk", ErrKeyBindingRequired)
	}
	return jose.JWKToPublicKey(jwkMap)
}
