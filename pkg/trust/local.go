package trust

import (
	"context"
	"crypto/x509"
	"fmt"
	"sync"
	"time"
)

// LocalTrustEvaluator validates an issuer's x5c chain against a locally
// configured root pool, without reaching out to any external trust
// registry. It is the default evaluator for SD-JWT VC issuers that
// authenticate via certificate rather than DID.
type LocalTrustEvaluator struct {
	mu              sync.RWMutex
	trustedRoots    []*x509.Certificate
	trustedRootPool *x509.CertPool
	allowedRoles    map[Role]bool // nil means all roles allowed
	clock           func() time.Time
}

// LocalTrustConfig configures a LocalTrustEvaluator.
type LocalTrustConfig struct {
	// TrustedRoots are the trusted root certificates.
	TrustedRoots []*x509.Certificate

	// AllowedRoles limits which roles this evaluator will answer for.
	// Nil means all roles.
	AllowedRoles []Role

	// Clock is used for certificate validity checks. If nil, time.Now is used.
	Clock func() time.Time
}

// NewLocalTrustEvaluator creates a local trust evaluator from config.
func NewLocalTrustEvaluator(config LocalTrustConfig) *LocalTrustEvaluator {
	pool := x509.NewCertPool()
	for _, cert := range config.TrustedRoots {
		pool.AddCert(cert)
	}

	var allowedRoles map[Role]bool
	if len(config.AllowedRoles) > 0 {
		allowedRoles = make(map[Role]bool, len(config.AllowedRoles))
		for _, role := range config.AllowedRoles {
			allowedRoles[role] = true
		}
	}

	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	return &LocalTrustEvaluator{
		trustedRoots:    config.TrustedRoots,
		trustedRootPool: pool,
		allowedRoles:    allowedRoles,
		clock:           clock,
	}
}

// AddTrustedRoot adds a root certificate to the pool, e.g. when rotating
// in a new issuer CA without rebuilding the evaluator.
func (e *LocalTrustEvaluator) AddTrustedRoot(cert *x509.Certificate) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.trustedRoots = append(e.trustedRoots, cert)
	e.trustedRootPool.AddCert(cert)
}

// Evaluate implements TrustEvaluator.
func (e *LocalTrustEvaluator) Evaluate(ctx context.Context, req *EvaluationRequest) (*TrustDecision, error) {
	if req == nil {
		return nil, fmt.Errorf("trust: evaluation request is nil")
	}

	if e.allowedRoles != nil && req.Role != RoleAny && !e.allowedRoles[req.Role] {
		return &TrustDecision{
			Trusted: false,
			Reason:  fmt.Sprintf("role %q not permitted by this trust anchor set", req.Role),
			Source:  "local-x5c",
		}, nil
	}

	switch req.KeyType {
	case KeyTypeX5C:
		return e.evaluateX5C(ctx, req)
	case KeyTypeJWK:
		// A bare JWK carries no chain of custody; local x5c trust has
		// nothing to verify it against.
		return &TrustDecision{
			Trusted: false,
			Reason:  "local-x5c evaluator cannot validate a bare JWK, no certificate chain to check",
			Source:  "local-x5c",
		}, nil
	default:
		return nil, fmt.Errorf("trust: unsupported key type %q", req.KeyType)
	}
}

// evaluateX5C validates an issuer's x5c certificate chain against the
// configured root pool and, if req.SubjectID is set, against the leaf's
// subject identity.
func (e *LocalTrustEvaluator) evaluateX5C(ctx context.Context, req *EvaluationRequest) (*TrustDecision, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var chain X5CCertChain

	switch k := req.Key.(type) {
	case []*x509.Certificate:
		chain = X5CCertChain(k)
	case X5CCertChain:
		chain = k
	default:
		return nil, fmt.Errorf("trust: invalid key type for x5c: %T", req.Key)
	}

	if len(chain) == 0 {
		return &TrustDecision{
			Trusted: false,
			Reason:  "empty issuer certificate chain",
			Source:  "local-x5c",
		}, nil
	}

	leaf := chain.GetLeafCert()
	now := e.clock()

	if now.Before(leaf.NotBefore) {
		return &TrustDecision{
			Trusted: false,
			Reason:  fmt.Sprintf("issuer certificate not yet valid: valid from %s", leaf.NotBefore),
			Source:  "local-x5c",
		}, nil
	}
	if now.After(leaf.NotAfter) {
		return &TrustDecision{
			Trusted: false,
			Reason:  fmt.Sprintf("issuer certificate expired: valid until %s", leaf.NotAfter),
			Source:  "local-x5c",
		}, nil
	}

	opts := x509.VerifyOptions{
		Roots:       e.trustedRootPool,
		CurrentTime: now,
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}

	if len(chain) > 1 {
		intermediates := x509.NewCertPool()
		for _, cert := range chain[1:] {
			intermediates.AddCert(cert)
		}
		opts.Intermediates = intermediates
	}

	verifiedChains, err := leaf.Verify(opts)
	if err != nil {
		return &TrustDecision{
			Trusted: false,
			Reason:  fmt.Sprintf("issuer chain did not verify against trusted roots: %v", err),
			Source:  "local-x5c",
		}, nil
	}

	if req.SubjectID != "" && !certificateMatchesSubject(leaf, req.SubjectID) {
		return &TrustDecision{
			Trusted: false,
			Reason:  fmt.Sprintf("issuer certificate subject does not match expected subject %q", req.SubjectID),
			Source:  "local-x5c",
		}, nil
	}

	verified := chain
	if len(verifiedChains) > 0 {
		verified = X5CCertChain(verifiedChains[0])
	}

	return &TrustDecision{
		Trusted: true,
		Reason:  fmt.Sprintf("issuer chain for %q verified against local trust anchors", req.SubjectID),
		Source:  "local-x5c",
		Chain:   verified,
	}, nil
}

// SupportsKeyType implements TrustEvaluator.
func (e *LocalTrustEvaluator) SupportsKeyType(kt KeyType) bool {
	return kt == KeyTypeX5C
}

// certificateMatchesSubject reports whether cert's CN or any SAN matches subjectID.
func certificateMatchesSubject(cert *x509.Certificate, subjectID string) bool {
	if cert.Subject.CommonName == subjectID {
		return true
	}

	for _, uri := range cert.URIs {
		if uri.String() == subjectID {
			return true
		}
	}

	for _, dns := range cert.DNSNames {
		if dns == subjectID {
			return true
		}
	}

	for _, email := range cert.EmailAddresses {
		if email == subjectID {
			return true
		}
	}

	return false
}

// GetTrustedRoots returns a copy of the configured root certificates.
func (e *LocalTrustEvaluator) GetTrustedRoots() []*x509.Certificate {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]*x509.Certificate, len(e.trustedRoots))
	copy(result, e.trustedRoots)
	return result
}

var _ TrustEvaluator = (*LocalTrustEvaluator)(nil)
