package sdjwt_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdjwtcore/pkg/jose"
	"sdjwtcore/pkg/sdjwt"
	"sdjwtcore/pkg/signing"
)

// staticResolver hands back a fixed public key regardless of issuerID/kid,
// standing in for a trust lookup in these issuer-is-already-known tests.
type staticResolver struct{ key any }

func (r staticResolver) ResolveKey(ctx context.Context, issuerID, kid string) (any, error) {
	return r.key, nil
}

func newIssuer(t *testing.T) (*sdjwt.Issuer, *ecdsa.PrivateKey) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	signer, err := signing.NewSoftwareSigner(priv, "issuer-key-1")
	require.NoError(t, err)
	return &sdjwt.Issuer{Signer: signer}, priv
}

func baseClaims(holderKey *ecdsa.PrivateKey) map[string]any {
	claims := map[string]any{
		"iss":         "https://issuer.example.com",
		"sub":         "user-1",
		"iat":         time.Now().Unix(),
		"given_name":  "Erika",
		"family_name": "Mustermann",
		"address": map[string]any{
			"street_address": "Sesamstraße 1",
			"locality":       "Musterstadt",
		},
	}
	if holderKey != nil {
		jwk, err := jose.PublicKeyToJWKMap(&holderKey.PublicKey)
		if err == nil {
			claims["cnf"] = map[string]any{"jwk": jwk}
		}
	}
	return claims
}

// TestEndToEndSelectiveDisclosureRevealAndHide covers the holder revealing
// one selectively-disclosable claim while keeping a sibling hidden from the
// verifier; always-visible claims remain visible regardless.
func TestEndToEndSelectiveDisclosureRevealAndHide(t *testing.T) {
	issuer, issuerKey := newIssuer(t)

	rules := sdjwt.DisclosureRules{Paths: []string{"given_name", "family_name", "address.street_address"}}
	issuedToken, disclosures, err := issuer.Issue(context.Background(), baseClaims(nil), rules, sdjwt.BuildOptions{})
	require.NoError(t, err)
	require.Len(t, disclosures, 3)

	issuerJWT, allDisclosures, err := sdjwt.ParseIssued(issuedToken)
	require.NoError(t, err)
	require.Len(t, allDisclosures, 3)

	revealed := sdjwt.SelectByClaimNames(allDisclosures, "given_name")
	presented, err := sdjwt.Present(issuerJWT, revealed, "")
	require.NoError(t, err)

	resolver := staticResolver{key: &issuerKey.PublicKey}
	result, err := sdjwt.Verify(context.Background(), presented, "https://issuer.example.com", resolver, sdjwt.VerificationOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Erika", result.Claims["given_name"])
	assert.NotContains(t, result.Claims, "family_name")
	address, ok := result.Claims["address"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, address, "street_address")
	assert.Equal(t, "Musterstadt", address["locality"])
}

// TestEndToEndFullRevealReconstructsOriginalClaims covers the case where the
// holder discloses every selectively disclosable claim: the verifier's
// reconstructed claims tree must match the original claims the issuer
// signed, structural diffing with go-cmp rather than a field-by-field walk.
func TestEndToEndFullRevealReconstructsOriginalClaims(t *testing.T) {
	issuer, issuerKey := newIssuer(t)

	original := baseClaims(nil)
	rules := sdjwt.DisclosureRules{Paths: []string{"given_name", "family_name", "address.street_address"}}
	issuedToken, _, err := issuer.Issue(context.Background(), original, rules, sdjwt.BuildOptions{})
	require.NoError(t, err)

	issuerJWT, allDisclosures, err := sdjwt.ParseIssued(issuedToken)
	require.NoError(t, err)

	presented, err := sdjwt.Present(issuerJWT, allDisclosures, "")
	require.NoError(t, err)

	resolver := staticResolver{key: &issuerKey.PublicKey}
	result, err := sdjwt.Verify(context.Background(), presented, "https://issuer.example.com", resolver, sdjwt.VerificationOptions{})
	require.NoError(t, err)

	reconstructed := make(map[string]any, len(result.Claims))
	for k, v := range result.Claims {
		if k == "_sd_alg" {
			continue
		}
		reconstructed[k] = v
	}
	// iat round-trips as float64 through JSON; normalize before diffing.
	if iat, ok := reconstructed["iat"].(float64); ok {
		reconstructed["iat"] = int64(iat)
	}
	if iat, ok := original["iat"].(int64); ok {
		original["iat"] = iat
	}

	if diff := cmp.Diff(original, reconstructed); diff != "" {
		t.Errorf("reconstructed claims mismatch (-original +reconstructed):\n%s", diff)
	}
}

// TestEndToEndUnusedDisclosureRejected covers a holder presenting a
// disclosure whose digest was not carried over into the issuer payload
// (e.g. substituted for a forged one), which must fail closed.
func TestEndToEndUnusedDisclosureRejected(t *testing.T) {
	issuer, issuerKey := newIssuer(t)

	rules := sdjwt.DisclosureRules{Paths: []string{"given_name"}}
	issuedToken, _, err := issuer.Issue(context.Background(), baseClaims(nil), rules, sdjwt.BuildOptions{})
	require.NoError(t, err)

	issuerJWT, _, err := sdjwt.ParseIssued(issuedToken)
	require.NoError(t, err)

	salt, err := sdjwt.NewSalt()
	require.NoError(t, err)
	foreign := sdjwt.Disclosure{Salt: salt, ClaimName: "given_name", Value: "Mallory"}

	presented, err := sdjwt.Present(issuerJWT, []sdjwt.Disclosure{foreign}, "")
	require.NoError(t, err)

	resolver := staticResolver{key: &issuerKey.PublicKey}
	_, err = sdjwt.Verify(context.Background(), presented, "https://issuer.example.com", resolver, sdjwt.VerificationOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdjwt.ErrUnusedDisclosure))
}

// TestEndToEndKeyBindingBadNonceRejected covers a holder-bound presentation
// whose Key Binding JWT nonce does not match what the verifier challenged
// the holder with.
func TestEndToEndKeyBindingBadNonceRejected(t *testing.T) {
	issuer, issuerKey := newIssuer(t)

	holderKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	holderSigner, err := signing.NewSoftwareSigner(holderKey, "holder-key-1")
	require.NoError(t, err)

	rules := sdjwt.DisclosureRules{Paths: []string{"given_name"}}
	issuedToken, _, err := issuer.Issue(context.Background(), baseClaims(holderKey), rules, sdjwt.BuildOptions{})
	require.NoError(t, err)

	issuerJWT, allDisclosures, err := sdjwt.ParseIssued(issuedToken)
	require.NoError(t, err)

	presentedNoKB, err := sdjwt.Present(issuerJWT, allDisclosures, "")
	require.NoError(t, err)

	kbJWT, err := sdjwt.CreateKeyBindingJWT(context.Background(), presentedNoKB, "wrong-nonce", "https://verifier.example.com", holderSigner, "")
	require.NoError(t, err)

	presented, err := sdjwt.Present(issuerJWT, allDisclosures, kbJWT)
	require.NoError(t, err)

	resolver := staticResolver{key: &issuerKey.PublicKey}
	opts := sdjwt.VerificationOptions{
		RequireKeyBinding: true,
		ExpectedNonce:     "expected-nonce",
		ExpectedAudience:  "https://verifier.example.com",
	}
	_, err = sdjwt.Verify(context.Background(), presented, "https://issuer.example.com", resolver, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdjwt.ErrKeyBindingBadNonce))
}

// TestEndToEndKeyBindingSucceeds covers the full holder-bound presentation
// flow: the verifier's nonce and audience match, so the presentation and
// its Key Binding JWT both verify.
func TestEndToEndKeyBindingSucceeds(t *testing.T) {
	issuer, issuerKey := newIssuer(t)

	holderKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	holderSigner, err := signing.NewSoftwareSigner(holderKey, "holder-key-1")
	require.NoError(t, err)

	rules := sdjwt.DisclosureRules{Paths: []string{"given_name"}}
	issuedToken, _, err := issuer.Issue(context.Background(), baseClaims(holderKey), rules, sdjwt.BuildOptions{})
	require.NoError(t, err)

	issuerJWT, allDisclosures, err := sdjwt.ParseIssued(issuedToken)
	require.NoError(t, err)

	presentedNoKB, err := sdjwt.Present(issuerJWT, allDisclosures, "")
	require.NoError(t, err)

	kbJWT, err := sdjwt.CreateKeyBindingJWT(context.Background(), presentedNoKB, "expected-nonce", "https://verifier.example.com", holderSigner, "")
	require.NoError(t, err)

	presented, err := sdjwt.Present(issuerJWT, allDisclosures, kbJWT)
	require.NoError(t, err)

	resolver := staticResolver{key: &issuerKey.PublicKey}
	opts := sdjwt.VerificationOptions{
		RequireKeyBinding: true,
		ExpectedNonce:     "expected-nonce",
		ExpectedAudience:  "https://verifier.example.com",
	}
	result, err := sdjwt.Verify(context.Background(), presented, "https://issuer.example.com", resolver, opts)
	require.NoError(t, err)
	require.NotNil(t, result.KeyBindingClaims)
	assert.Equal(t, "expected-nonce", result.KeyBindingClaims["nonce"])
}

// TestEndToEndUnsignedAlgorithmRejected covers rejection of a presentation
// whose issuer JWS alg is "none", which must never verify regardless of
// what key the resolver returns.
func TestEndToEndUnsignedAlgorithmRejected(t *testing.T) {
	issuer, issuerKey := newIssuer(t)

	rules := sdjwt.DisclosureRules{Paths: []string{"given_name"}}
	issuedToken, _, err := issuer.Issue(context.Background(), baseClaims(nil), rules, sdjwt.BuildOptions{})
	require.NoError(t, err)

	issuerJWT, allDisclosures, err := sdjwt.ParseIssued(issuedToken)
	require.NoError(t, err)

	parts := strings.SplitN(issuerJWT, ".", 3)
	require.Len(t, parts, 3)
	noneHeader := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	unsigned := noneHeader + "." + parts[1] + "."

	presented, err := sdjwt.Present(unsigned, allDisclosures, "")
	require.NoError(t, err)

	resolver := staticResolver{key: &issuerKey.PublicKey}
	_, err = sdjwt.Verify(context.Background(), presented, "https://issuer.example.com", resolver, sdjwt.VerificationOptions{})
	assert.Error(t, err)
}
