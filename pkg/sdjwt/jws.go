package sdjwt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// signJWS builds and signs a compact JWS: base64url(header) + "." +
// base64url(payload), signed by the caller-supplied Signer. The header's
// alg and (when set) kid are always derived from the Signer, overriding
// whatever the caller passed in extraHeader.
func signJWS(ctx context.Context, extraHeader map[string]any, claims map[string]any, signer Signer) (string, error) {
	header := map[string]any{}
	for k, v := range extraHeader {
		header[k] = v
	}
	header["alg"] = signer.Algorithm()
	if kid := signer.KeyID(); kid != "" {
		header["kid"] = kid
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("sdjwt: marshal header: %w", err)
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("sdjwt: marshal payload: %w", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(payloadJSON)

	sig, err := signer.Sign(ctx, []byte(signingInput))
	if err != nil {
		return "", fmt.Errorf("sdjwt: sign: %w", err)
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// splitJWS splits a compact JWS into its header, payload and signature
// segments, base64url-decoding the header and payload but leaving the
// signature encoded (verification needs the raw signing input).
func splitJWS(token string) (header map[string]any, claims map[string]any, signingInput string, sigB64 string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, nil, "", "", fmt.Errorf("%w: jwt must have 3 segments", ErrMalformedInput)
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, nil, "", "", fmt.Errorf("%w: header: %v", ErrMalformedInput, err)
	}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, nil, "", "", fmt.Errorf("%w: header: %v", ErrMalformedInput, err)
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, nil, "", "", fmt.Errorf("%w: payload: %v", ErrMalformedInput, err)
	}
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return nil, nil, "", "", fmt.Errorf("%w: payload: %v", ErrMalformedInput, err)
	}

	return header, claims, parts[0] + "." + parts[1], parts[2], nil
}

// verifyJWSSignature verifies a JWS signing input against a public key,
// rejecting alg=none and any non-asymmetric algorithm.
func verifyJWSSignature(signingInput, sigB64, alg string, publicKey any) error {
	switch strings.ToLower(alg) {
	case "none", "":
		return fmt.Errorf("%w: alg %q not allowed", ErrUnsupportedAlgorithm, alg)
	}
	if strings.HasPrefix(alg, "HS") {
		return fmt.Errorf("%w: symmetric alg %q not allowed", ErrUnsupportedAlgorithm, alg)
	}

	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return fmt.Errorf("%w: unknown alg %q", ErrUnsupportedAlgorithm, alg)
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("%w: signature: %v", ErrMalformedInput, err)
	}

	if err := method.Verify(signingInput, sig, publicKey); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return nil
}
