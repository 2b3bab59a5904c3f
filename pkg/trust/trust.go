// Package trust decides whether an SD-JWT issuer's signing key is
// authorized to issue credentials of a given type.
//
// SD-JWT VC issuers typically authenticate via an x5c certificate chain
// carried in the JWS header (draft-ietf-oauth-sd-jwt-vc), rather than a
// DID that must be resolved. That means a verifier's trust question is
// usually "is this chain rooted in an anchor I trust for this issuer and
// role", answered locally against a configured root pool, rather than a
// lookup against a remote identity document. This package models that
// question as a TrustEvaluator, with LocalTrustEvaluator doing the x509
// work, CompositeEvaluator combining several trust sources, and
// CachingTrustEvaluator avoiding repeated chain verification for issuers
// a verifier has already decided about recently.
//
// A smaller KeyResolver interface covers the DID-based case (used by
// pkg/trust.DIDKeyResolver) for callers verifying W3C-style credentials
// where the issuer key must actually be fetched rather than validated.
package trust

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/base64"
)

// TrustDecision is the outcome of asking whether an issuer's key is
// authorized for a Role.
type TrustDecision struct {
	// Trusted reports whether the subject-to-key binding is authorized.
	Trusted bool

	// Reason explains the decision, for logging and error messages.
	Reason string

	// Source identifies which evaluator produced the decision, e.g.
	// "local-x5c" or "composite:all-must-succeed". A decision served from
	// CachingTrustEvaluator keeps the Source it was cached with.
	Source string

	// Chain is the verified certificate chain, populated by evaluators
	// that validate x5c chains when Trusted is true.
	Chain X5CCertChain
}

// KeyType indicates the format of the public key material being
// evaluated or resolved.
type KeyType string

const (
	// KeyTypeJWK indicates a JWK (JSON Web Key) map.
	KeyTypeJWK KeyType = "jwk"
	// KeyTypeX5C indicates an X.509 certificate chain.
	KeyTypeX5C KeyType = "x5c"
)

// Role is the capacity in which a key is being evaluated.
type Role string

const (
	// RoleIssuer authorizes a key to sign issued SD-JWTs/SD-JWT VCs.
	RoleIssuer Role = "issuer"
	// RoleVerifier authorizes a key as a trusted relying party, e.g. for
	// Key Binding JWT audience checks that require a known verifier
	// identity rather than an open audience.
	RoleVerifier Role = "verifier"
	// RoleAny applies no role constraint.
	RoleAny Role = ""
)

// EvaluationRequest is the input to TrustEvaluator.Evaluate.
type EvaluationRequest struct {
	// SubjectID identifies the issuer, normally the SD-JWT `iss` claim.
	SubjectID string

	// KeyType is the format of Key.
	KeyType KeyType

	// Key is the public key material to evaluate:
	//   - []*x509.Certificate or X5CCertChain for KeyTypeX5C
	//   - map[string]any for KeyTypeJWK
	Key any

	// Role is the capacity the key is being evaluated for.
	Role Role

	// CredentialType is the `vct` of the credential being issued or
	// verified, when known. Evaluators may use it to select between
	// per-vct trust lists.
	CredentialType string

	// Options carries evaluation-time overrides.
	Options *TrustOptions
}

// TrustOptions carries per-evaluation overrides.
type TrustOptions struct {
	// BypassCache skips any CachingTrustEvaluator wrapping this request.
	BypassCache bool
}

// GetEffectiveAction returns a string identifying the (role, credential
// type) pair a cache key or policy lookup should key off of.
func (r *EvaluationRequest) GetEffectiveAction() string {
	if r.Role == RoleAny {
		return r.CredentialType
	}
	if r.CredentialType != "" {
		return string(r.Role) + ":" + r.CredentialType
	}
	return string(r.Role)
}

// TrustEvaluator decides whether a subject-to-key binding is authorized.
// LocalTrustEvaluator, CompositeEvaluator and CachingTrustEvaluator all
// implement it, and compose freely.
type TrustEvaluator interface {
	// Evaluate checks whether req's key is trusted for req's subject and role.
	Evaluate(ctx context.Context, req *EvaluationRequest) (*TrustDecision, error)

	// SupportsKeyType reports whether this evaluator can handle kt.
	SupportsKeyType(kt KeyType) bool
}

// KeyResolver fetches a public key for a DID-style verification method,
// rather than validating one already in hand.
type KeyResolver interface {
	// ResolveKey retrieves the public key for the given verification method.
	ResolveKey(ctx context.Context, verificationMethod string) (crypto.PublicKey, error)
}

// CombinedTrustService combines evaluation and resolution, for callers
// that verify both x5c-bound and DID-bound issuers through one value.
type CombinedTrustService interface {
	TrustEvaluator
	KeyResolver
}

// X5CCertChain is the x5c certificate chain carried in an SD-JWT's JWS
// header, leaf certificate first.
type X5CCertChain []*x509.Certificate

// GetLeafCert returns the end-entity (issuer) certificate.
func (c X5CCertChain) GetLeafCert() *x509.Certificate {
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// GetRootCert returns the chain's final certificate, normally the root CA.
func (c X5CCertChain) GetRootCert() *x509.Certificate {
	if len(c) == 0 {
		return nil
	}
	return c[len(c)-1]
}

// GetSubjectID extracts an issuer identifier from the leaf certificate:
// the Subject CN, falling back to the first SAN URI or DNS name.
func (c X5CCertChain) GetSubjectID() string {
	leaf := c.GetLeafCert()
	if leaf == nil {
		return ""
	}

	if leaf.Subject.CommonName != "" {
		return leaf.Subject.CommonName
	}

	for _, uri := range leaf.URIs {
		return uri.String()
	}

	if len(leaf.DNSNames) > 0 {
		return leaf.DNSNames[0]
	}

	return ""
}

// ToBase64Strings converts the chain to base64-encoded DER strings, the
// form an SD-JWT JWS header's x5c array carries.
func (c X5CCertChain) ToBase64Strings() []string {
	result := make([]string, len(c))
	for i, cert := range c {
		result[i] = base64.StdEncoding.EncodeToString(cert.Raw)
	}
	return result
}
