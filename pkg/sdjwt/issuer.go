package sdjwt

import (
	"context"
	"fmt"

	"sdjwtcore/pkg/logger"
)

// Issuer issues SD-JWTs from a set of claims and a Signer. It holds no
// mutable state and is safe for concurrent use.
type Issuer struct {
	Signer Signer

	// HashAlg is the _sd_alg this issuer uses. Defaults to DefaultHashAlg.
	HashAlg string

	// Header carries extra JWS header fields (e.g. "typ") merged into
	// every issued token. alg and kid are always derived from Signer.
	Header map[string]any

	// Logger is an optional audit sink. When nil, Issue logs nothing; a
	// caller running a real issuance service typically plugs one in to
	// record who signed what and with which key.
	Logger *logger.Log
}

// Issue builds an SD payload from claims according to rules, signs it, and
// returns the combined "<jwt>~<d1>~...~<dn>~" string along with the
// Disclosures the issuer must hand the holder out of band.
func (iss *Issuer) Issue(ctx context.Context, claims map[string]any, rules DisclosureRules, opts BuildOptions) (string, []Disclosure, error) {
	if iss.Signer == nil {
		return "", nil, fmt.Errorf("sdjwt: issuer has no signer configured")
	}

	if opts.HashAlg == "" {
		opts.HashAlg = iss.HashAlg
	}

	payload, disclosures, err := BuildSDPayload(claims, rules, opts)
	if err != nil {
		if iss.Logger != nil {
			iss.Logger.Info("sd-jwt issuance failed", "keyID", iss.Signer.KeyID(), "stage", "build-payload", "error", err.Error())
		}
		return "", nil, err
	}

	jwt, err := signJWS(ctx, iss.Header, payload, iss.Signer)
	if err != nil {
		if iss.Logger != nil {
			iss.Logger.Info("sd-jwt issuance failed", "keyID", iss.Signer.KeyID(), "stage", "sign", "error", err.Error())
		}
		return "", nil, err
	}

	encoded := make([]string, 0, len(disclosures))
	for _, d := range disclosures {
		s, err := d.Encode()
		if err != nil {
			if iss.Logger != nil {
				iss.Logger.Info("sd-jwt issuance failed", "keyID", iss.Signer.KeyID(), "stage", "encode-disclosure", "error", err.Error())
			}
			return "", nil, err
		}
		encoded = append(encoded, s)
	}

	if iss.Logger != nil {
		iss.Logger.Info("sd-jwt issued", "keyID", iss.Signer.KeyID(), "alg", iss.Signer.Algorithm(), "numDisclosures", len(disclosures))
	}

	return Combine(jwt, encoded, ""), disclosures, nil
}
