// Package sdjwtvc implements the SD-JWT VC profile (draft-ietf-oauth-sd-
// jwt-vc) on top of pkg/sdjwt: the vct claim, Verifiable Credential Type
// Metadata (VCTM), and the dc+sd-jwt / vc+sd-jwt media types.
package sdjwtvc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// VCTM is Verifiable Credential Type Metadata, Section 6/8/9 of the draft.
type VCTM struct {
	VCT                string        `json:"vct"`
	Name               string        `json:"name,omitempty"`
	Description        string        `json:"description,omitempty"`
	Comment            string        `json:"$comment,omitempty"`
	Display            []VCTMDisplay `json:"display,omitempty"`
	Claims             []Claim       `json:"claims,omitempty"`
	SchemaURL          string        `json:"schema_url,omitempty"`
	SchemaURLIntegrity string        `json:"schema_url#integrity,omitempty"`
	Extends            string        `json:"extends,omitempty"`
	ExtendsIntegrity   string        `json:"extends#integrity,omitempty"`
}

// VCTMDisplay is a per-language display entry (Section 8.1).
type VCTMDisplay struct {
	Lang        string    `json:"lang"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Rendering   Rendering `json:"rendering,omitempty"`
}

// Rendering carries both the simple logo/color rendering hints and SVG
// template references for a display entry.
type Rendering struct {
	Simple       SimpleRendering `json:"simple,omitempty"`
	SVGTemplates []SVGTemplates  `json:"svg_templates,omitempty"`
}

// SimpleRendering is the minimal logo/color rendering hint set.
type SimpleRendering struct {
	Logo            Logo   `json:"logo,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
}

// Logo points at an issuer-hosted logo image with an integrity hash.
type Logo struct {
	URI          string `json:"uri,omitempty"`
	URIIntegrity string `json:"uri#integrity,omitempty"`
	AltText      string `json:"alt_text,omitempty"`
}

// SVGTemplates points at an SVG rendering template.
type SVGTemplates struct {
	URI          string                `json:"uri,omitempty"`
	URLIntegrity string                `json:"uri#integrity,omitempty"`
	Properties   SVGTemplateProperties `json:"properties,omitempty"`
}

// SVGTemplateProperties narrows which conditions an SVG template applies to.
type SVGTemplateProperties struct {
	Orientation string `json:"orientation,omitempty"`
	ColorScheme string `json:"color_scheme,omitempty"`
	Contrast    string `json:"contrast,omitempty"`
}

// SD disclosure policy values for a Claim (Section 9.1).
const (
	SDAlways  = "always"
	SDAllowed = "allowed"
	SDNever   = "never"
)

// Claim describes how one claim in the credential should be treated:
// its path, display strings, selective-disclosure policy and whether a
// verifier must be able to process it.
type Claim struct {
	Path      []*string      `json:"path"`
	Display   []ClaimDisplay `json:"display,omitempty"`
	SD        string         `json:"sd,omitempty"`
	Mandatory bool           `json:"mandatory,omitempty"`
	SVGID     string         `json:"svg_id,omitempty"`
}

// ClaimDisplay is a per-language label/description for a Claim.
type ClaimDisplay struct {
	Lang        string `json:"lang"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// JSONPath renders a Claim's Path as a JSONPath expression. A nil path
// segment (meaning "every element of this array") is rendered as "[*]".
func (c *Claim) JSONPath() string {
	if c == nil || c.Path == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("$")
	for _, seg := range c.Path {
		if seg == nil {
			b.WriteString("[*]")
			continue
		}
		b.WriteString(".")
		b.WriteString(*seg)
	}
	return b.String()
}

// DisclosurePath renders a Claim's Path as the dot-separated form
// sdjwt.DisclosureRules expects, e.g. "address.street_address" or
// "nationalities[]" when the final segment is an array wildcard.
func (c *Claim) DisclosurePath() string {
	if c == nil || len(c.Path) == 0 {
		return ""
	}

	segments := make([]string, 0, len(c.Path))
	arrayTail := false
	for i, seg := range c.Path {
		if seg == nil {
			if i == len(c.Path)-1 {
				arrayTail = true
				continue
			}
			return "" // wildcard in the middle of a path is not representable
		}
		segments = append(segments, *seg)
	}

	path := strings.Join(segments, ".")
	if arrayTail {
		path += "[]"
	}
	return path
}

// VCTMJSONPath summarizes which claims are displayable (keyed by svg_id)
// and every claim's JSONPath expression.
type VCTMJSONPath struct {
	Displayable map[string]string `json:"displayable"`
	AllClaims   []string          `json:"all_claims"`
}

// ClaimJSONPath builds a VCTMJSONPath summary from the VCTM's Claims.
func (v *VCTM) ClaimJSONPath() (*VCTMJSONPath, error) {
	if v.Claims == nil {
		return nil, fmt.Errorf("sdjwtvc: vctm has no claims")
	}

	out := &VCTMJSONPath{
		Displayable: map[string]string{},
		AllClaims:   []string{},
	}
	for i := range v.Claims {
		c := &v.Claims[i]
		if c.SVGID != "" {
			out.Displayable[c.SVGID] = c.JSONPath()
		}
		out.AllClaims = append(out.AllClaims, c.JSONPath())
	}
	return out, nil
}

// Attributes builds a lang -> label -> JSONPath map from the VCTM's claim
// display metadata, for UIs that render a credential by label.
func (v *VCTM) Attributes() map[string]map[string]string {
	out := map[string]map[string]string{}
	for i := range v.Claims {
		c := &v.Claims[i]
		path := c.JSONPath()
		for _, d := range c.Display {
			if out[d.Lang] == nil {
				out[d.Lang] = map[string]string{}
			}
			out[d.Lang][d.Label] = path
		}
	}
	return out
}

// MandatoryPaths returns the DisclosurePath of every claim marked
// Mandatory: the claims the credential type requires a presentation to
// still reveal after selective disclosure. VerifyCredential's mandatory
// check walks Claim.Path directly and does not call it.
func (v *VCTM) MandatoryPaths() []string {
	var out []string
	for i := range v.Claims {
		if v.Claims[i].Mandatory {
			if p := v.Claims[i].DisclosurePath(); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// AlwaysDisclosedPaths returns the DisclosurePath of every claim whose SD
// policy is SDAlways, i.e. every claim an issuer must make selectively
// disclosable.
func (v *VCTM) AlwaysDisclosedPaths() []string {
	var out []string
	for i := range v.Claims {
		if v.Claims[i].SD == SDAlways {
			if p := v.Claims[i].DisclosurePath(); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Encode marshals the VCTM to JSON and base64url-encodes it, the form
// carried in an SD-JWT VC's "vctm" JWT header parameter.
func (v *VCTM) Encode() (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sdjwtvc: encode vctm: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// DecodeVCTM decodes a VCTM from its JWT header parameter representation,
// which may be a single base64url string, an array of them (the last
// extending the first, per Section 6.1), or an already-decoded object
// (some issuers embed it inline rather than encoding it).
func DecodeVCTM(raw any) (*VCTM, error) {
	switch v := raw.(type) {
	case string:
		return decodeVCTMString(v)
	case []any:
		var last *VCTM
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("sdjwtvc: vctm array element is not a string")
			}
			vctm, err := decodeVCTMString(s)
			if err != nil {
				return nil, err
			}
			last = vctm
		}
		return last, nil
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("sdjwtvc: re-marshal inline vctm: %w", err)
		}
		vctm := &VCTM{}
		if err := json.Unmarshal(b, vctm); err != nil {
			return nil, fmt.Errorf("sdjwtvc: decode inline vctm: %w", err)
		}
		return vctm, nil
	default:
		return nil, fmt.Errorf("sdjwtvc: unsupported vctm encoding %T", raw)
	}
}

func decodeVCTMString(s string) (*VCTM, error) {
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("sdjwtvc: decode vctm: %w", err)
		}
	}
	vctm := &VCTM{}
	if err := json.Unmarshal(b, vctm); err != nil {
		return nil, fmt.Errorf("sdjwtvc: unmarshal vctm: %w", err)
	}
	return vctm, nil
}

// FilterByJSONPath extracts a labeled subset of documentData using a
// label -> JSONPath map, as produced by Attributes. Used to build display
// previews without exposing the full credential.
func FilterByJSONPath(documentData map[string]any, paths map[string]string) (map[string]any, error) {
	b, err := json.Marshal(documentData)
	if err != nil {
		return nil, fmt.Errorf("sdjwtvc: marshal document data: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("sdjwtvc: unmarshal document data: %w", err)
	}

	out := map[string]any{}
	for label, path := range paths {
		result, err := jsonpath.Get(path, v)
		if err != nil {
			return nil, fmt.Errorf("sdjwtvc: evaluate path %q: %w", path, err)
		}
		out[label] = result
	}
	return out, nil
}
