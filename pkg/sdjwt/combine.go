package sdjwt

import "strings"

// Combine joins an issuer JWT with its disclosures and an optional Key
// Binding JWT into the wire format "<jwt>~<d1>~...~<dn>~[kb-jwt]". The
// trailing "~" is always present even with zero disclosures, per Section
// 4.1 of the draft, so a verifier can tell a bare JWT from an SD-JWT with
// no disclosed claims.
func Combine(jwt string, disclosures []string, keyBindingJWT string) string {
	var b strings.Builder
	b.WriteString(jwt)
	b.WriteByte('~')
	for _, d := range disclosures {
		b.WriteString(d)
		b.WriteByte('~')
	}
	b.WriteString(keyBindingJWT)
	return b.String()
}

// splitPresentation splits a combined token into its issuer JWT,
// disclosure strings, and optional Key Binding JWT.
func splitPresentation(token string) (issuerJWT string, disclosures []string, keyBindingJWT string, err error) {
	if token == "" {
		return "", nil, "", ErrMalformedInput
	}
	parts := strings.Split(token, "~")
	if len(parts) < 2 {
		return "", nil, "", ErrMalformedInput
	}
	issuerJWT = parts[0]
	middle := parts[1 : len(parts)-1]
	for _, m := range middle {
		if m == "" {
			return "", nil, "", ErrMalformedInput
		}
		disclosures = append(disclosures, m)
	}
	keyBindingJWT = parts[len(parts)-1]
	return issuerJWT, disclosures, keyBindingJWT, nil
}
