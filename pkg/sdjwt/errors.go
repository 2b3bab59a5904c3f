package sdjwt

import "errors"

// Closed set of errors returned by this package. Callers should compare
// with errors.Is rather than matching on message text.
var (
	// ErrMalformedInput is returned when a token does not have the
	// expected "<jwt>~<disclosure>~...~[kb-jwt]" shape.
	ErrMalformedInput = errors.New("sdjwt: malformed input")

	// ErrMalformedDisclosure is returned when a disclosure string does not
	// base64url-decode to a 2 or 3 element JSON array.
	ErrMalformedDisclosure = errors.New("sdjwt: malformed disclosure")

	// ErrReservedKey is returned when a disclosed claim name collides with
	// a reserved name ("_sd", "_sd_alg", "...").
	ErrReservedKey = errors.New("sdjwt: reserved claim name")

	// ErrUnsupportedAlgorithm is returned when _sd_alg is not one of
	// sha-256, sha-384 or sha-512, or when the JWS alg is none/HS*.
	ErrUnsupportedAlgorithm = errors.New("sdjwt: unsupported algorithm")

	// ErrSignatureInvalid is returned when JWS or Key Binding JWT
	// signature verification fails.
	ErrSignatureInvalid = errors.New("sdjwt: signature invalid")

	// ErrExpired is returned when exp is in the past.
	ErrExpired = errors.New("sdjwt: token expired")

	// ErrNotYetValid is returned when nbf/iat is in the future.
	ErrNotYetValid = errors.New("sdjwt: token not yet valid")

	// ErrDuplicateDisclosure is returned when the same disclosure string,
	// or two disclosures hashing to the same digest, appear more than once.
	ErrDuplicateDisclosure = errors.New("sdjwt: duplicate disclosure")

	// ErrDisclosureCollision is returned when a disclosure's digest
	// appears in more than one _sd array.
	ErrDisclosureCollision = errors.New("sdjwt: disclosure digest used more than once")

	// ErrUnusedDisclosure is returned when a presented disclosure's digest
	// is not found anywhere in the claims tree.
	ErrUnusedDisclosure = errors.New("sdjwt: disclosure not referenced by any _sd array")

	// ErrKeyBindingRequired is returned when VerificationOptions requires a
	// Key Binding JWT but none was presented.
	ErrKeyBindingRequired = errors.New("sdjwt: key binding jwt required")

	// ErrKeyBindingMismatch is returned when sd_hash does not match the
	// actual presented prefix.
	ErrKeyBindingMismatch = errors.New("sdjwt: key binding sd_hash mismatch")

	// ErrKeyBindingInvalidSignature is returned when the Key Binding JWT
	// signature does not verify against cnf.jwk.
	ErrKeyBindingInvalidSignature = errors.New("sdjwt: key binding signature invalid")

	// ErrKeyBindingBadAudience is returned when the Key Binding JWT aud
	// does not match the expected audience.
	ErrKeyBindingBadAudience = errors.New("sdjwt: key binding audience mismatch")

	// ErrKeyBindingBadNonce is returned when the Key Binding JWT nonce does
	// not match the expected nonce.
	ErrKeyBindingBadNonce = errors.New("sdjwt: key binding nonce mismatch")
)
