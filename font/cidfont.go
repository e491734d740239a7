package font

import (
	"fmt"
	"strings"

	"github.com/tsawler/pdfhtml/core"
)

// CIDFont is the descendant of a Type0 font. It holds the glyph widths,
// keyed by CID.
type CIDFont struct {
	BaseFont      string
	Subtype       string // CIDFontType0 or CIDFontType2
	CIDSystemInfo CIDSystemInfo
	DW            float64      // default width
	W             []WidthRange // from the W array, in array order

	dict core.Dict
}

// CIDSystemInfo identifies a character collection.
type CIDSystemInfo struct {
	Registry   string // e.g., "Adobe"
	Ordering   string // e.g., "Japan1", "GB1", "CNS1", "Korea1", "Identity"
	Supplement int
}

// WidthRange is one entry of a W array: either a run of individual
// widths starting at StartCID or a single width for StartCID..EndCID.
type WidthRange struct {
	StartCID uint32
	EndCID   uint32
	Width    float64
	Widths   []float64
}

// loadCIDFont reads the first element of a Type0 font's DescendantFonts.
func loadCIDFont(fontDict core.Dict, r Resolver) (*CIDFont, error) {
	arr, ok := resolve(r, fontDict.Get("DescendantFonts")).(core.Array)
	if !ok || len(arr) == 0 {
		return nil, fmt.Errorf("missing DescendantFonts")
	}
	dict, ok := resolve(r, arr[0]).(core.Dict)
	if !ok {
		return nil, fmt.Errorf("descendant font is %T, not a dictionary", resolve(r, arr[0]))
	}
	return NewCIDFont(dict, r)
}

// NewCIDFont builds a CIDFont from its dictionary. Missing or malformed
// widths leave the default width of 1000 in effect.
func NewCIDFont(fontDict core.Dict, r Resolver) (*CIDFont, error) {
	subtype := nameOf(fontDict.Get("Subtype"))
	if subtype != "CIDFontType0" && subtype != "CIDFontType2" {
		return nil, fmt.Errorf("not a CIDFont: %q", subtype)
	}

	cid := &CIDFont{
		BaseFont: nameOf(fontDict.Get("BaseFont")),
		Subtype:  subtype,
		DW:       1000,
		dict:     fontDict,
	}
	if info, ok := resolve(r, fontDict.Get("CIDSystemInfo")).(core.Dict); ok {
		cid.CIDSystemInfo = CIDSystemInfo{
			Registry:   textOf(resolve(r, info.Get("Registry"))),
			Ordering:   textOf(resolve(r, info.Get("Ordering"))),
			Supplement: int(numberOf(resolve(r, info.Get("Supplement")))),
		}
	}
	if dw, ok := core.ToFloat(resolve(r, fontDict.Get("DW"))); ok {
		cid.DW = dw
	}
	if w, ok := resolve(r, fontDict.Get("W")).(core.Array); ok {
		cid.W = parseWidthArray(w, r)
	}
	return cid, nil
}

// parseWidthArray reads "c [w1 w2 ...]" and "cfirst clast w" entries. A
// malformed tail is ignored.
func parseWidthArray(w core.Array, r Resolver) []WidthRange {
	var out []WidthRange
	for i := 0; i+1 < len(w); {
		start, ok := core.ToFloat(resolve(r, w[i]))
		if !ok || start < 0 {
			break
		}
		if widths, ok := resolve(r, w[i+1]).(core.Array); ok {
			wr := WidthRange{StartCID: uint32(start), Widths: make([]float64, len(widths))}
			for j, v := range widths {
				wr.Widths[j] = numberOf(resolve(r, v))
			}
			if len(widths) > 0 {
				wr.EndCID = wr.StartCID + uint32(len(widths)) - 1
				out = append(out, wr)
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			break
		}
		end, ok := core.ToFloat(resolve(r, w[i+1]))
		if !ok || end < start {
			break
		}
		out = append(out, WidthRange{
			StartCID: uint32(start),
			EndCID:   uint32(end),
			Width:    numberOf(resolve(r, w[i+2])),
		})
		i += 3
	}
	return out
}

// Width returns the horizontal width of cid in glyph space.
func (cid *CIDFont) Width(c uint32) float64 {
	for _, wr := range cid.W {
		if c < wr.StartCID || c > wr.EndCID {
			continue
		}
		if wr.Widths != nil {
			return wr.Widths[c-wr.StartCID]
		}
		return wr.Width
	}
	return cid.DW
}

// IsCJK reports whether the font uses a Chinese, Japanese or Korean
// character collection.
func (cid *CIDFont) IsCJK() bool {
	switch cid.CIDSystemInfo.Ordering {
	case "Japan1", "GB1", "CNS1", "Korea1":
		return true
	}
	return false
}

// isUCS2CMap reports whether a predefined CMap name maps codes straight
// to UCS-2 or UTF-16, such as "UniJIS-UCS2-H" or "UniGB-UTF16-V".
func isUCS2CMap(name string) bool {
	return strings.HasPrefix(name, "Uni") &&
		(strings.Contains(name, "-UCS2-") || strings.Contains(name, "-UTF16-"))
}
