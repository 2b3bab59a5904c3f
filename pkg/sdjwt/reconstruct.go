package sdjwt

import "fmt"

// trackedDisclosure pairs a decoded Disclosure with whether it has been
// consumed while reconstructing the claims tree.
type trackedDisclosure struct {
	d    Disclosure
	used bool
}

// reconstructClaims walks the full claims tree - not just the top-level
// _sd array - splicing every disclosed claim back into place, including
// disclosures nested inside other disclosures and array-element markers
// anywhere in the tree. It returns ErrDisclosureCollision if a digest
// appears in more than one _sd array or array-element marker, and the
// caller is responsible for checking for unused disclosures afterwards via
// the used flags left on byDigest.
func reconstructClaims(claims map[string]any, byDigest map[string]*trackedDisclosure) error {
	return reconstructObject(claims, byDigest)
}

func reconstructObject(obj map[string]any, byDigest map[string]*trackedDisclosure) error {
	sdRaw, hasSD := obj["_sd"]
	delete(obj, "_sd")
	delete(obj, "_sd_alg")

	if hasSD {
		arr, ok := sdRaw.([]any)
		if !ok {
			return fmt.Errorf("%w: _sd is not an array", ErrMalformedInput)
		}
		for _, e := range arr {
			digest, ok := e.(string)
			if !ok {
				return fmt.Errorf("%w: _sd entry is not a string", ErrMalformedInput)
			}
			td, ok := byDigest[digest]
			if !ok {
				// No matching disclosure: either a decoy digest or an
				// undisclosed claim. Both are legitimately absent.
				continue
			}
			if td.used {
				return ErrDisclosureCollision
			}
			if td.d.IsArray {
				return fmt.Errorf("%w: array-element disclosure referenced from an object _sd array", ErrMalformedInput)
			}
			if _, exists := obj[td.d.ClaimName]; exists {
				return fmt.Errorf("%w: claim %q already present alongside its disclosure", ErrMalformedInput, td.d.ClaimName)
			}
			td.used = true
			obj[td.d.ClaimName] = td.d.Value
		}
	}

	for k, v := range obj {
		nv, err := reconstructValue(v, byDigest)
		if err != nil {
			return err
		}
		obj[k] = nv
	}
	return nil
}

func reconstructValue(v any, byDigest map[string]*trackedDisclosure) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if err := reconstructObject(t, byDigest); err != nil {
			return nil, err
		}
		return t, nil
	case []any:
		out := make([]any, 0, len(t))
		for _, e := range t {
			if m, ok := e.(map[string]any); ok && len(m) == 1 {
				if digestAny, ok := m["..."]; ok {
					digest, ok := digestAny.(string)
					if !ok {
						return nil, fmt.Errorf("%w: array element marker is not a string digest", ErrMalformedInput)
					}
					td, ok := byDigest[digest]
					if !ok {
						// decoy array-element marker or undisclosed element
						continue
					}
					if td.used {
						return nil, ErrDisclosureCollision
					}
					if !td.d.IsArray {
						return nil, fmt.Errorf("%w: object disclosure referenced from an array element marker", ErrMalformedInput)
					}
					td.used = true
					nv, err := reconstructValue(td.d.Value, byDigest)
					if err != nil {
						return nil, err
					}
					out = append(out, nv)
					continue
				}
			}
			nv, err := reconstructValue(e, byDigest)
			if err != nil {
				return nil, err
			}
			out = append(out, nv)
		}
		return out, nil
	default:
		return v, nil
	}
}
