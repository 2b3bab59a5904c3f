package statuslist

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"math/big"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CWT constants per RFC 8392 and draft-ietf-oauth-status-list Section 6
const (
	// CWTTypHeader is the typ header value for Status List Token CWTs (Section 6.1)
	CWTTypHeader = "statuslist+cwt"

	// COSE header parameters (RFC 8152)
	coseHeaderAlg = 1  // Algorithm
	coseHeaderKid = 4  // Key ID
	coseHeaderTyp = 16 // Content Type (used for typ in CWT)

	// CWT claims (RFC 8392 Section 4)
	cwtClaimIss        = 1     // Issuer
	cwtClaimSub        = 2     // Subject
	cwtClaimExp        = 4     // Expiration Time
	cwtClaimIat        = 6     // Issued At
	cwtClaimStatusList = 65534 // status_list claim (draft-ietf-oauth-status-list Section 6.1)
	cwtClaimTTL        = 65535 // ttl claim (custom, for caching)

	// Status list CBOR map keys (Section 6.1)
	statusListKeyBits           = 1 // bits
	statusListKeyLst            = 2 // lst (raw bytes for CWT, not base64)
	statusListKeyAggregationURI = 3 // aggregation_uri
)

// COSE algorithm identifiers (RFC 8152 Section 8.1).
// Use these constants with CWTSigningConfig.Algorithm.
const (
	CoseAlgES256 = -7  // ECDSA w/ SHA-256 (P-256 curve)
	CoseAlgES384 = -35 // ECDSA w/ SHA-384 (P-384 curve)
	CoseAlgES512 = -36 // ECDSA w/ SHA-512 (P-521 curve)
)

// CWTStatusList represents the status_list claim in CWT format (Section 6.1).
// Unlike JWT, CWT uses raw bytes for lst instead of base64url encoding.
type CWTStatusList struct {
	Bits           int    `cbor:"1,keyasint"`
	Lst            []byte `cbor:"2,keyasint"`
	AggregationURI string `cbor:"3,keyasint,omitempty"`
}

// CWTSigningConfig holds CWT-specific signing configuration.
type CWTSigningConfig struct {
	// SigningKey is the private key for signing (REQUIRED, must be *ecdsa.PrivateKey)
	SigningKey crypto.PrivateKey

	// Algorithm specifies the COSE algorithm (default: CoseAlgES256).
	Algorithm int
}

// GenerateCWT creates a signed Status List Token CWT per Section 6.1.
// The token is a COSE_Sign1 structure containing:
// - Protected header: alg, typ=statuslist+cwt, kid
// - Payload: CWT claims (iss, sub, iat, exp, ttl, status_list)
func (sl *StatusList) GenerateCWT(cfg CWTSigningConfig) ([]byte, error) {
	compressedStatuses, err := sl.Compress()
	if err != nil {
		return nil, fmt.Errorf("statuslist: compress status list: %w", err)
	}

	now := time.Now()

	claims := map[int]any{
		cwtClaimIss: sl.Issuer,
		cwtClaimSub: sl.Subject,
		cwtClaimIat: now.Unix(),
		cwtClaimStatusList: CWTStatusList{
			Bits:           sl.bitsOrDefault(),
			Lst:            compressedStatuses,
			AggregationURI: sl.AggregationURI,
		},
	}

	if sl.ExpiresIn > 0 {
		claims[cwtClaimExp] = now.Add(sl.ExpiresIn).Unix()
	}
	if sl.TTL > 0 {
		claims[cwtClaimTTL] = sl.TTL
	}

	alg := cfg.Algorithm
	if alg == 0 {
		alg = CoseAlgES256
	}

	protectedHeader := map[int]any{
		coseHeaderAlg: alg,
		coseHeaderTyp: CWTTypHeader,
	}
	if sl.KeyID != "" {
		protectedHeader[coseHeaderKid] = sl.KeyID
	}

	protectedBytes, err := cbor.Marshal(protectedHeader)
	if err != nil {
		return nil, fmt.Errorf("statuslist: encode protected header: %w", err)
	}

	payloadBytes, err := cbor.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("statuslist: encode cwt claims: %w", err)
	}

	signature, err := signCOSE(protectedBytes, payloadBytes, cfg.SigningKey, alg)
	if err != nil {
		return nil, fmt.Errorf("statuslist: sign cwt: %w", err)
	}

	coseSign1 := cbor.Tag{
		Number:  18, // COSE_Sign1
		Content: []any{protectedBytes, map[int]any{}, payloadBytes, signature},
	}

	cwtBytes, err := cbor.Marshal(coseSign1)
	if err != nil {
		return nil, fmt.Errorf("statuslist: encode cose_sign1: %w", err)
	}

	return cwtBytes, nil
}

// CWTConfig holds CWT-specific configuration for generating a Status List
// Token in one call, for callers that don't want to build a StatusList
// first.
type CWTConfig struct {
	TokenConfig

	// SigningKey is the private key for signing (REQUIRED, must be *ecdsa.PrivateKey)
	SigningKey crypto.PrivateKey

	// Algorithm specifies the COSE algorithm (default: ES256)
	Algorithm int
}

// GenerateCWT creates a signed Status List Token CWT per Section 6.1 from a
// CWTConfig.
func GenerateCWT(cfg CWTConfig) ([]byte, error) {
	sl, err := NewFromConfig(cfg.TokenConfig)
	if err != nil {
		return nil, err
	}
	return sl.GenerateCWT(CWTSigningConfig{
		SigningKey: cfg.SigningKey,
		Algorithm:  cfg.Algorithm,
	})
}

// signCOSE creates a COSE signature over the Sig_structure.
// Sig_structure = ["Signature1", protected, external_aad, payload]
func signCOSE(protectedBytes, payloadBytes []byte, key crypto.PrivateKey, alg int) ([]byte, error) {
	sigStructure := []any{
		"Signature1",
		protectedBytes,
		[]byte{},
		payloadBytes,
	}

	sigStructureBytes, err := cbor.Marshal(sigStructure)
	if err != nil {
		return nil, fmt.Errorf("statuslist: encode sig_structure: %w", err)
	}

	switch alg {
	case CoseAlgES256:
		return signECDSA(sigStructureBytes, key, sha256.New())
	case CoseAlgES384:
		return signECDSA(sigStructureBytes, key, sha512.New384())
	case CoseAlgES512:
		return signECDSA(sigStructureBytes, key, sha512.New())
	default:
		return nil, fmt.Errorf("statuslist: unsupported algorithm: %d", alg)
	}
}

// signECDSA signs data using ECDSA with the provided hash function, so
// callers can pick SHA-256, SHA-384 or SHA-512 to match the COSE algorithm.
func signECDSA(data []byte, key crypto.PrivateKey, hasher hash.Hash) ([]byte, error) {
	defer hasher.Reset()

	ecdsaKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("statuslist: signing key must be *ecdsa.PrivateKey")
	}

	hasher.Write(data)
	digest := hasher.Sum(nil)

	sigR, sigS, err := ecdsa.Sign(rand.Reader, ecdsaKey, digest)
	if err != nil {
		return nil, fmt.Errorf("statuslist: ecdsa signing failed: %w", err)
	}

	curveBits := ecdsaKey.Curve.Params().BitSize
	keyBytes := (curveBits + 7) / 8

	signature := make([]byte, 2*keyBytes)
	sigRBytes := sigR.Bytes()
	sigSBytes := sigS.Bytes()

	copy(signature[keyBytes-len(sigRBytes):keyBytes], sigRBytes)
	copy(signature[2*keyBytes-len(sigSBytes):], sigSBytes)

	return signature, nil
}

// ParseCWT parses a Status List Token CWT and returns the claims.
// It does NOT verify the signature; use VerifyCWT for full validation.
func ParseCWT(cwtBytes []byte) (map[int]any, error) {
	var coseSign1 cbor.Tag
	if err := cbor.Unmarshal(cwtBytes, &coseSign1); err != nil {
		return nil, fmt.Errorf("statuslist: decode cose_sign1: %w", err)
	}

	if coseSign1.Number != 18 {
		return nil, fmt.Errorf("statuslist: invalid cose tag: expected 18 (COSE_Sign1), got %d", coseSign1.Number)
	}

	components, ok := coseSign1.Content.([]any)
	if !ok || len(components) != 4 {
		return nil, fmt.Errorf("statuslist: invalid cose_sign1 structure")
	}

	payloadBytes, ok := components[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("statuslist: invalid payload in cose_sign1")
	}

	var claims map[int]any
	if err := cbor.Unmarshal(payloadBytes, &claims); err != nil {
		return nil, fmt.Errorf("statuslist: decode cwt claims: %w", err)
	}

	return claims, nil
}

// VerifyCWT parses cwtBytes, verifies its COSE_Sign1 signature against
// publicKey, and returns the claims. Only ECDSA (ES256/ES384/ES512) is
// supported, matching GenerateCWT.
func VerifyCWT(cwtBytes []byte, publicKey *ecdsa.PublicKey) (map[int]any, error) {
	var coseSign1 cbor.Tag
	if err := cbor.Unmarshal(cwtBytes, &coseSign1); err != nil {
		return nil, fmt.Errorf("statuslist: decode cose_sign1: %w", err)
	}
	if coseSign1.Number != 18 {
		return nil, fmt.Errorf("statuslist: invalid cose tag: expected 18 (COSE_Sign1), got %d", coseSign1.Number)
	}
	components, ok := coseSign1.Content.([]any)
	if !ok || len(components) != 4 {
		return nil, fmt.Errorf("statuslist: invalid cose_sign1 structure")
	}
	protectedBytes, ok := components[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("statuslist: invalid protected header in cose_sign1")
	}
	payloadBytes, ok := components[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("statuslist: invalid payload in cose_sign1")
	}
	signature, ok := components[3].([]byte)
	if !ok {
		return nil, fmt.Errorf("statuslist: invalid signature in cose_sign1")
	}

	var protectedHeader map[int]any
	if err := cbor.Unmarshal(protectedBytes, &protectedHeader); err != nil {
		return nil, fmt.Errorf("statuslist: decode protected header: %w", err)
	}
	alg, err := intHeaderValue(protectedHeader[coseHeaderAlg])
	if err != nil {
		return nil, fmt.Errorf("statuslist: read alg header: %w", err)
	}

	sigStructure := []any{"Signature1", protectedBytes, []byte{}, payloadBytes}
	sigStructureBytes, err := cbor.Marshal(sigStructure)
	if err != nil {
		return nil, fmt.Errorf("statuslist: encode sig_structure: %w", err)
	}

	var hasher hash.Hash
	switch alg {
	case CoseAlgES256:
		hasher = sha256.New()
	case CoseAlgES384:
		hasher = sha512.New384()
	case CoseAlgES512:
		hasher = sha512.New()
	default:
		return nil, fmt.Errorf("statuslist: unsupported algorithm: %d", alg)
	}
	hasher.Write(sigStructureBytes)
	digest := hasher.Sum(nil)

	keyBytes := (publicKey.Curve.Params().BitSize + 7) / 8
	if len(signature) != 2*keyBytes {
		return nil, fmt.Errorf("statuslist: invalid signature length %d", len(signature))
	}
	r := new(big.Int).SetBytes(signature[:keyBytes])
	s := new(big.Int).SetBytes(signature[keyBytes:])
	if !ecdsa.Verify(publicKey, digest, r, s) {
		return nil, fmt.Errorf("statuslist: signature verification failed")
	}

	var claims map[int]any
	if err := cbor.Unmarshal(payloadBytes, &claims); err != nil {
		return nil, fmt.Errorf("statuslist: decode cwt claims: %w", err)
	}
	return claims, nil
}

func intHeaderValue(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("statuslist: unexpected header value type %T", v)
	}
}

// GetStatusFromCWT retrieves a status value from parsed CWT claims. index
// corresponds to the "idx" value in the Referenced Token's status claim.
func GetStatusFromCWT(claims map[int]any, index int) (uint8, error) {
	statusListRaw, ok := claims[cwtClaimStatusList]
	if !ok {
		return 0, fmt.Errorf("statuslist: status_list claim not found")
	}

	var lstBytes []byte
	bits := Bits8

	switch sl := statusListRaw.(type) {
	case map[any]any:
		for k, v := range sl {
			switch key := k.(type) {
			case int:
				assignCWTField(key, v, &lstBytes, &bits)
			case int64:
				assignCWTField(int(key), v, &lstBytes, &bits)
			case uint64:
				assignCWTField(int(key), v, &lstBytes, &bits)
			}
		}
	case map[int]any:
		if b, ok := sl[statusListKeyLst].([]byte); ok {
			lstBytes = b
		}
		if b, ok := sl[statusListKeyBits]; ok {
			if n, err := intHeaderValue(b); err == nil {
				bits = n
			}
		}
	case CWTStatusList:
		lstBytes = sl.Lst
		if sl.Bits != 0 {
			bits = sl.Bits
		}
	default:
		return 0, fmt.Errorf("statuslist: invalid status_list claim format: %T", statusListRaw)
	}

	if lstBytes == nil {
		return 0, fmt.Errorf("statuslist: lst not found in status_list")
	}

	statuses, err := DecompressWithBits(lstBytes, bits, index+1)
	if err != nil {
		return 0, fmt.Errorf("statuslist: decompress status list: %w", err)
	}

	return GetStatus(statuses, index)
}

func assignCWTField(key int, v any, lstBytes *[]byte, bits *int) {
	switch key {
	case statusListKeyLst:
		if b, ok := v.([]byte); ok {
			*lstBytes = b
		}
	case statusListKeyBits:
		if n, err := intHeaderValue(v); err == nil {
			*bits = n
		}
	}
}
