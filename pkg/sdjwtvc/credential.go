package sdjwtvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sdjwtcore/pkg/jose"
	"sdjwtcore/pkg/logger"
	"sdjwtcore/pkg/sdjwt"
)

// Media types registered for the SD-JWT VC profile. TypDCSDJWT is the
// current draft value; TypVCSDJWT is kept for interoperability with
// issuers still on the earlier media type.
const (
	TypDCSDJWT = "dc+sd-jwt"
	TypVCSDJWT = "vc+sd-jwt"
)

// IssuerConfig configures IssueCredential.
type IssuerConfig struct {
	Signer Signer

	// Issuer is the iss claim.
	Issuer string

	// HashAlg is the _sd_alg to use. Defaults to sdjwt.DefaultHashAlg.
	HashAlg string

	// Typ is the JWS typ header. Defaults to TypDCSDJWT.
	Typ string

	// ValidFor, when non-zero, sets exp relative to IssuedAt.
	ValidFor time.Duration

	// IssuedAt defaults to time.Now when zero.
	IssuedAt time.Time

	// HolderPublicKey, when non-nil, is embedded as cnf.jwk so the holder
	// can later prove possession via a Key Binding JWT.
	HolderPublicKey any

	// DecoyDigests is forwarded to sdjwt.BuildOptions.
	DecoyDigests int

	// Logger is an optional audit sink forwarded to the underlying
	// sdjwt.Issuer. Nil disables logging.
	Logger *logger.Log
}

// Signer is re-exported from sdjwt so callers constructing an IssuerConfig
// don't need to import both packages.
type Signer = sdjwt.Signer

// IssueCredential builds, populates and signs an SD-JWT VC: it merges vct
// and registered claims into claims, applies vctm's always-disclosed and
// caller-requested paths as selective disclosure rules, and signs the
// result with cfg.Signer. It returns the combined presentation-ready token
// and the Disclosures the holder needs.
func IssueCredential(ctx context.Context, cfg IssuerConfig, claims map[string]any, vctm *VCTM, extraDisclosurePaths []string) (string, []sdjwt.Disclosure, error) {
	if cfg.Signer == nil {
		return "", nil, fmt.Errorf("sdjwtvc: issuer config has no signer")
	}
	if vctm == nil || vctm.VCT == "" {
		return "", nil, fmt.Errorf("sdjwtvc: vctm with a vct is required")
	}

	payload := make(map[string]any, len(claims)+6)
	for k, v := range claims {
		payload[k] = v
	}
	payload["vct"] = vctm.VCT
	if cfg.Issuer != "" {
		payload["iss"] = cfg.Issuer
	}
	payload["jti"] = uuid.NewString()

	issuedAt := cfg.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	payload["iat"] = issuedAt.Unix()
	if cfg.ValidFor > 0 {
		payload["exp"] = issuedAt.Add(cfg.ValidFor).Unix()
	}

	if cfg.HolderPublicKey != nil {
		jwk, err := jose.PublicKeyToJWKMap(cfg.HolderPublicKey)
		if err != nil {
			return "", nil, fmt.Errorf("sdjwtvc: convert holder public key: %w", err)
		}
		payload["cnf"] = map[string]any{"jwk": jwk}
	}

	rules := sdjwt.DisclosureRules{Paths: append(append([]string(nil), vctm.AlwaysDisclosedPaths()...), extraDisclosurePaths...)}

	typ := cfg.Typ
	if typ == "" {
		typ = TypDCSDJWT
	}
	encodedVCTM, err := vctm.Encode()
	if err != nil {
		return "", nil, err
	}

	issuer := &sdjwt.Issuer{
		Signer:  cfg.Signer,
		HashAlg: cfg.HashAlg,
		Header: map[string]any{
			"typ":  typ,
			"vctm": encodedVCTM,
		},
		Logger: cfg.Logger,
	}

	return issuer.Issue(ctx, payload, rules, sdjwt.BuildOptions{HashAlg: cfg.HashAlg, DecoyDigests: cfg.DecoyDigests})
}

// VerifyOptions configures VerifyCredential.
type VerifyOptions struct {
	sdjwt.VerificationOptions

	// ExpectedVCT, when non-empty, must match the credential's vct claim.
	ExpectedVCT string

	// EnforceMandatoryClaims rejects a presentation missing any claim the
	// VCTM marks Mandatory.
	EnforceMandatoryClaims bool
}

// CredentialResult is the outcome of a successful VerifyCredential call.
type CredentialResult struct {
	*sdjwt.VerificationResult
	VCTM *VCTM
}

// VerifyCredential verifies presented as an SD-JWT VC: the underlying
// SD-JWT (signature, disclosures, time validity, optional key binding),
// then the vct claim, the embedded VCTM, and optionally that every
// VCTM-mandatory claim survived selective disclosure.
func VerifyCredential(ctx context.Context, presented, issuerID string, resolver sdjwt.IssuerKeyResolver, opts VerifyOptions) (*CredentialResult, error) {
	result, err := sdjwt.Verify(ctx, presented, issuerID, resolver, opts.VerificationOptions)
	if err != nil {
		return nil, err
	}

	vct, _ := result.Claims["vct"].(string)
	if vct == "" {
		return nil, fmt.Errorf("sdjwtvc: presented token has no vct claim")
	}
	if opts.ExpectedVCT != "" && vct != opts.ExpectedVCT {
		return nil, fmt.Errorf("sdjwtvc: vct %q does not match expected %q", vct, opts.ExpectedVCT)
	}

	var vctm *VCTM
	if raw, ok := result.Header["vctm"]; ok {
		vctm, err = DecodeVCTM(raw)
		if err != nil {
			return nil, fmt.Errorf("sdjwtvc: decode vctm header: %w", err)
		}
		if vctm.VCT != "" && vctm.VCT != vct {
			return nil, fmt.Errorf("sdjwtvc: vctm vct %q does not match token vct %q", vctm.VCT, vct)
		}
	}

	if opts.EnforceMandatoryClaims && vctm != nil {
		if err := checkMandatoryClaims(result.Claims, vctm); err != nil {
			return nil, err
		}
	}

	return &CredentialResult{VerificationResult: result, VCTM: vctm}, nil
}

// checkMandatoryClaims walks every VCTM claim marked Mandatory and confirms
// it is present in the reconstructed claim tree.
func checkMandatoryClaims(claims map[string]any, vctm *VCTM) error {
	for i := range vctm.Claims {
		c := &vctm.Claims[i]
		if !c.Mandatory {
			continue
		}
		if !claimPresent(claims, c.Path) {
			return fmt.Errorf("sdjwtvc: mandatory claim %q missing from presentation", c.JSONPath())
		}
	}
	return nil
}

// claimPresent reports whether the claim addressed by path exists in the
// reconstructed claim tree. A nil segment means "any element" and is
// satisfied by a non-empty array.
func claimPresent(claims map[string]any, path []*string) bool {
	var cur any = claims
	for _, seg := range path {
		switch node := cur.(type) {
		case map[string]any:
			if seg == nil {
				return false
			}
			v, ok := node[*seg]
			if !ok {
				return false
			}
			cur = v
		case []any:
			if seg != nil {
				return false
			}
			if len(node) == 0 {
				return false
			}
			cur = node[0]
		default:
			return false
		}
	}
	return true
}
