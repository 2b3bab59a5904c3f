package statuslist

import (
	"crypto"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTTypHeader is the typ header value for Status List Token JWTs (Section 5.1)
const JWTTypHeader = "statuslist+jwt"

// JWTClaims represents the JWT claims for a Status List Token (Section 5.1).
// The JWT header MUST have typ: statuslist+jwt.
type JWTClaims struct {
	jwt.RegisteredClaims

	// StatusList: REQUIRED. The status_list claim containing the Status List.
	StatusList StatusListClaim `json:"status_list"`

	// TTL: RECOMMENDED. Time to live in seconds - maximum time the token can be cached.
	TTL int64 `json:"ttl,omitempty"`
}

// JWTSigningConfig holds JWT-specific signing configuration.
type JWTSigningConfig struct {
	// SigningKey is the private key for signing (REQUIRED)
	SigningKey crypto.PrivateKey

	// SigningMethod is the JWT signing method (e.g., jwt.SigningMethodES256) (REQUIRED)
	SigningMethod jwt.SigningMethod
}

// GenerateJWT creates a signed Status List Token JWT per Section 5.1.
// The token includes:
// - Header: typ=statuslist+jwt, alg, kid
// - Claims: sub, iss, iat, exp (optional), ttl (optional), status_list
func (sl *StatusList) GenerateJWT(cfg JWTSigningConfig) (string, error) {
	if cfg.SigningKey == nil {
		return "", fmt.Errorf("statuslist: signing key is required")
	}
	if cfg.SigningMethod == nil {
		return "", fmt.Errorf("statuslist: signing method is required")
	}

	lst, err := sl.CompressAndEncode()
	if err != nil {
		return "", fmt.Errorf("statuslist: compress status list: %w", err)
	}

	now := time.Now()

	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  sl.Subject,
			Issuer:   sl.Issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
		StatusList: StatusListClaim{
			Bits:           sl.bitsOrDefault(),
			Lst:            lst,
			AggregationURI: sl.AggregationURI,
		},
	}

	if sl.ExpiresIn > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(sl.ExpiresIn))
	}
	if sl.TTL > 0 {
		claims.TTL = sl.TTL
	}

	token := jwt.NewWithClaims(cfg.SigningMethod, claims)
	token.Header["typ"] = JWTTypHeader
	if sl.KeyID != "" {
		token.Header["kid"] = sl.KeyID
	}

	signedToken, err := token.SignedString(cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("statuslist: sign status list token: %w", err)
	}

	return signedToken, nil
}

// JWTConfig holds JWT-specific configuration for generating a Status List
// Token in one call, for callers that don't want to build a StatusList
// first.
type JWTConfig struct {
	TokenConfig

	// SigningKey is the private key for signing (REQUIRED)
	SigningKey crypto.PrivateKey

	// SigningMethod is the JWT signing method (e.g., jwt.SigningMethodES256) (REQUIRED)
	SigningMethod jwt.SigningMethod
}

// GenerateJWT creates a signed Status List Token JWT per Section 5.1 from a
// JWTConfig.
func GenerateJWT(cfg JWTConfig) (string, error) {
	sl, err := NewFromConfig(cfg.TokenConfig)
	if err != nil {
		return "", err
	}
	return sl.GenerateJWT(JWTSigningConfig{
		SigningKey:    cfg.SigningKey,
		SigningMethod: cfg.SigningMethod,
	})
}

// ParseJWT parses a Status List Token JWT and returns the claims,
// validating the token signature using the provided key function and
// rejecting a typ header other than statuslist+jwt.
func ParseJWT(tokenString string, keyFunc jwt.Keyfunc) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, keyFunc)
	if err != nil {
		return nil, fmt.Errorf("statuslist: parse status list token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("statuslist: invalid status list token claims")
	}

	if typ, ok := token.Header["typ"].(string); !ok || typ != JWTTypHeader {
		return nil, fmt.Errorf("statuslist: invalid typ header: expected %s", JWTTypHeader)
	}

	return claims, nil
}

// GetStatusFromJWT retrieves a status value from a parsed JWT Status List
// Token. index corresponds to the "idx" value in the Referenced Token's
// status claim.
func GetStatusFromJWT(claims *JWTClaims, index int) (uint8, error) {
	bits := claims.StatusList.Bits
	if bits == 0 {
		bits = Bits8
	}

	compressed, err := decodeBase64URL(claims.StatusList.Lst)
	if err != nil {
		return 0, fmt.Errorf("statuslist: decode lst: %w", err)
	}
	statuses, err := DecompressWithBits(compressed, bits, index+1)
	if err != nil {
		return 0, fmt.Errorf("statuslist: decode status list: %w", err)
	}

	return GetStatus(statuses, index)
}
