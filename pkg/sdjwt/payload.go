package sdjwt

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
)

// DisclosureRules lists the claim paths an issuer wants to make selectively
// disclosable. A path is a dot-separated walk from the claims root, e.g.
// "address.street_address". A path ending in "[]" marks every element of
// that array as an individually disclosable array element, e.g.
// "nationalities[]".
type DisclosureRules struct {
	Paths []string
}

// BuildOptions configures SD payload construction.
type BuildOptions struct {
	// HashAlg is the _sd_alg to use. Defaults to DefaultHashAlg.
	HashAlg string

	// DecoyDigests is the number of decoy digests added to the top-level
	// _sd array, to frustrate inference of the real disclosure count.
	DecoyDigests int
}

// BuildSDPayload turns a plain claims map into an SD-JWT payload (with
// _sd_alg and _sd arrays in place of the selectively disclosed values) plus
// the Disclosure values the issuer must hand to the holder out of band.
func BuildSDPayload(claims map[string]any, rules DisclosureRules, opts BuildOptions) (map[string]any, []Disclosure, error) {
	alg := opts.HashAlg
	if alg == "" {
		alg = DefaultHashAlg
	}
	hashCtor, err := HashConstructor(alg)
	if err != nil {
		return nil, nil, err
	}

	root := deepCopyMap(claims)
	var disclosures []Disclosure

	paths := append([]string(nil), rules.Paths...)
	sort.Slice(paths, func(i, j int) bool {
		return depthOf(paths[i]) > depthOf(paths[j])
	})

	for _, path := range paths {
		if strings.HasSuffix(path, "[]") {
			ds, err := discloseArrayPath(root, path, hashCtor)
			if err != nil {
				return nil, nil, err
			}
			disclosures = append(disclosures, ds...)
			continue
		}

		d, err := discloseObjectPath(root, path, hashCtor)
		if err != nil {
			return nil, nil, err
		}
		disclosures = append(disclosures, d)
	}

	if opts.DecoyDigests > 0 {
		if err := addDecoyDigests(root, opts.DecoyDigests, hashCtor); err != nil {
			return nil, nil, err
		}
	}

	sortSDArrays(root)
	root["_sd_alg"] = alg

	return root, disclosures, nil
}

func depthOf(path string) int {
	return strings.Count(strings.TrimSuffix(path, "[]"), ".")
}

func discloseObjectPath(root map[string]any, path string, hashCtor func() hasher) (Disclosure, error) {
	segments := strings.Split(path, ".")
	claimName := segments[len(segments)-1]

	if isReservedClaimName(claimName) {
		return Disclosure{}, fmt.Errorf("%w: claim path %q names a reserved claim", ErrReservedKey, path)
	}

	parent, err := navigate(root, segments[:len(segments)-1])
	if err != nil {
		return Disclosure{}, err
	}

	value, ok := parent[claimName]
	if !ok {
		return Disclosure{}, fmt.Errorf("%w: claim path %q not found", ErrMalformedInput, path)
	}
	delete(parent, claimName)

	salt, err := NewSalt()
	if err != nil {
		return Disclosure{}, err
	}
	d := Disclosure{Salt: salt, ClaimName: claimName, Value: value}

	digest, err := d.Digest(hashCtor)
	if err != nil {
		return Disclosure{}, err
	}
	if err := addSDDigest(parent, digest); err != nil {
		return Disclosure{}, err
	}

	return d, nil
}

func discloseArrayPath(root map[string]any, path string, hashCtor func() hasher) ([]Disclosure, error) {
	base := strings.TrimSuffix(path, "[]")
	segments := strings.Split(base, ".")
	arrKey := segments[len(segments)-1]

	parent, err := navigate(root, segments[:len(segments)-1])
	if err != nil {
		return nil, err
	}

	arr, ok := parent[arrKey].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: array claim path %q not found", ErrMalformedInput, path)
	}

	disclosures := make([]Disclosure, 0, len(arr))
	for i, v := range arr {
		salt, err := NewSalt()
		if err != nil {
			return nil, err
		}
		d := Disclosure{Salt: salt, Value: v, IsArray: true}
		digest, err := d.Digest(hashCtor)
		if err != nil {
			return nil, err
		}
		arr[i] = map[string]any{"...": digest}
		disclosures = append(disclosures, d)
	}
	parent[arrKey] = arr

	return disclosures, nil
}

// navigate walks segments from root, requiring each to be a
// map[string]any. An empty segment list returns root itself.
func navigate(root map[string]any, segments []string) (map[string]any, error) {
	cur := root
	for _, seg := range segments {
		next, ok := cur[seg]
		if !ok {
			return nil, fmt.Errorf("%w: claim path segment %q not found", ErrMalformedInput, seg)
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: claim path segment %q is not an object", ErrMalformedInput, seg)
		}
		cur = m
	}
	return cur, nil
}

// addSDDigest appends digest to claims["_sd"], creating the array if
// needed, and rejects a digest already present at this depth.
func addSDDigest(claims map[string]any, digest string) error {
	existing, _ := claims["_sd"].([]any)
	for _, v := range existing {
		if s, ok := v.(string); ok && s == digest {
			return ErrDuplicateDisclosure
		}
	}
	claims["_sd"] = append(existing, digest)
	return nil
}

func addDecoyDigests(claims map[string]any, count int, hashCtor func() hasher) error {
	for i := 0; i < count; i++ {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return fmt.Errorf("sdjwt: generate decoy: %w", err)
		}
		digest, err := digestString(string(raw), hashCtor)
		if err != nil {
			return err
		}
		if err := addSDDigest(claims, digest); err != nil {
			// exceptionally unlucky digest collision with a real disclosure;
			// simply skip this decoy rather than fail issuance.
			continue
		}
	}
	return nil
}

// sortSDArrays alphanumerically sorts every "_sd" array found anywhere in
// the tree, standing in for randomized shuffling (see Design Notes).
func sortSDArrays(v any) {
	switch t := v.(type) {
	case map[string]any:
		if sd, ok := t["_sd"].([]any); ok {
			strs := make([]string, 0, len(sd))
			for _, e := range sd {
				if s, ok := e.(string); ok {
					strs = append(strs, s)
				}
			}
			sort.Strings(strs)
			out := make([]any, len(strs))
			for i, s := range strs {
				out[i] = s
			}
			t["_sd"] = out
		}
		for k, child := range t {
			if k == "_sd" {
				continue
			}
			sortSDArrays(child)
		}
	case []any:
		for _, child := range t {
			sortSDArrays(child)
		}
	}
}

// deepCopyMap makes an independent copy of a claims tree so BuildSDPayload
// never mutates the caller's input.
func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
