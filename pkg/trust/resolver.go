package trust

import (
	"context"
	"crypto/x509"
	"fmt"

	"sdjwtcore/pkg/jose"
	"sdjwtcore/pkg/logger"
	"sdjwtcore/pkg/sdjwt"
)

// X5CChainLookup fetches the x5c certificate chain an issuer used to sign
// its SD-JWTs. Callers typically implement this against a local cache of
// issuer metadata or a trust-list snapshot; it is the one piece this
// package cannot supply generically, since chain discovery is a per-
// deployment concern.
type X5CChainLookup func(ctx context.Context, issuerID, kid string) ([]*x509.Certificate, error)

// EvaluatingKeyResolver implements sdjwt.IssuerKeyResolver by fetching an
// issuer's x5c certificate chain via Lookup and accepting it only if
// Evaluator reports the chain trusted for RoleIssuer. This is how a
// verifier plugs a LocalTrustEvaluator (or a CompositeEvaluator mixing
// local and remote sources) into sdjwt.Verify/sdjwtvc.VerifyCredential.
type EvaluatingKeyResolver struct {
	Evaluator      TrustEvaluator
	Lookup         X5CChainLookup
	CredentialType string

	// Logger is an optional audit sink. When nil, ResolveKey logs
	// nothing; a verifier typically plugs one in to record which
	// issuers it accepted or rejected and why.
	Logger *logger.Log
}

var _ sdjwt.IssuerKeyResolver = (*EvaluatingKeyResolver)(nil)

// ResolveKey fetches issuerID's x5c chain, asks Evaluator whether it is
// trusted for credential issuance, and returns the leaf certificate's
// public key when it is.
func (r *EvaluatingKeyResolver) ResolveKey(ctx context.Context, issuerID, kid string) (any, error) {
	if r.Lookup == nil {
		return nil, fmt.Errorf("trust: no x5c lookup configured")
	}
	chain, err := r.Lookup(ctx, issuerID, kid)
	if err != nil {
		return nil, fmt.Errorf("trust: resolve x5c chain for %q: %w", issuerID, err)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("trust: empty x5c chain for %q", issuerID)
	}

	decision, err := r.Evaluator.Evaluate(ctx, &EvaluationRequest{
		SubjectID:      issuerID,
		KeyType:        KeyTypeX5C,
		Key:            X5CCertChain(chain),
		Role:           RoleIssuer,
		CredentialType: r.CredentialType,
	})
	if err != nil {
		return nil, fmt.Errorf("trust: evaluate issuer %q: %w", issuerID, err)
	}
	if !decision.Trusted {
		if r.Logger != nil {
			r.Logger.Info("issuer trust evaluation rejected", "issuer", issuerID, "kid", kid, "source", decision.Source, "reason", decision.Reason)
		}
		return nil, fmt.Errorf("trust: issuer %q not trusted: %s", issuerID, decision.Reason)
	}

	if r.Logger != nil {
		r.Logger.Debug("issuer trust evaluation accepted", "issuer", issuerID, "kid", kid, "source", decision.Source)
	}

	return chain[0].PublicKey, nil
}

// DIDKeyResolver implements sdjwt.IssuerKeyResolver over a KeyResolver
// (DID-based resolution), used by callers verifying W3C-style credentials
// where kid is a full verificationMethod DID URL. When kid is empty,
// issuerID itself is used as the verification method.
type DIDKeyResolver struct {
	Resolver KeyResolver
}

var _ sdjwt.IssuerKeyResolver = (*DIDKeyResolver)(nil)

// ResolveKey resolves the holder/issuer key for a DID-based verification
// method, falling back to issuerID when kid is empty.
func (r *DIDKeyResolver) ResolveKey(ctx context.Context, issuerID, kid string) (any, error) {
	if r.Resolver == nil {
		return nil, fmt.Errorf("trust: no key resolver configured")
	}
	verificationMethod := kid
	if verificationMethod == "" {
		verificationMethod = issuerID
	}
	return r.Resolver.ResolveKey(ctx, verificationMethod)
}

// StaticKeyResolver implements sdjwt.IssuerKeyResolver from a fixed
// issuer -> kid -> JWK map, the common case in tests and small deployments
// that pin a handful of known issuer keys rather than resolving them
// dynamically. An empty kid key ("") matches when the signed token's
// header carries no kid.
type StaticKeyResolver map[string]map[string]map[string]any

var _ sdjwt.IssuerKeyResolver = (StaticKeyResolver)(nil)

// ResolveKey looks up issuerID and kid in the map and converts the stored
// JWK to a Go public key.
func (r StaticKeyResolver) ResolveKey(_ context.Context, issuerID, kid string) (any, error) {
	byKid, ok := r[issuerID]
	if !ok {
		return nil, fmt.Errorf("trust: unknown issuer %q", issuerID)
	}
	jwkMap, ok := byKid[kid]
	if !ok {
		return nil, fmt.Errorf("trust: unknown kid %q for issuer %q", kid, issuerID)
	}
	return jose.JWKToPublicKey(jwkMap)
}
