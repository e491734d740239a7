package images

import (
	"fmt"

	"github.com/tsawler/pdfhtml/core"
)

// ColorSpace describes how image samples map to color.
type ColorSpace struct {
	Family     string // DeviceGray, DeviceRGB, DeviceCMYK, Indexed, ICCBased, Separation, ...
	Components int    // samples per pixel
	Base       *ColorSpace
	HiVal      int    // highest palette index of an Indexed space
	Lookup     []byte // Indexed palette, Base.Components bytes per entry
}

var (
	deviceGray = &ColorSpace{Family: "DeviceGray", Components: 1}
	deviceRGB  = &ColorSpace{Family: "DeviceRGB", Components: 3}
	deviceCMYK = &ColorSpace{Family: "DeviceCMYK", Components: 4}
)

// maxColorSpaceDepth bounds named and nested color space lookups.
const maxColorSpaceDepth = 8

// String returns the family, with the base of an Indexed space.
func (cs *ColorSpace) String() string {
	if cs == nil {
		return ""
	}
	if cs.Base != nil {
		return cs.Family + " " + cs.Base.String()
	}
	return cs.Family
}

// parseColorSpace reads a /ColorSpace value. Names that are not device
// spaces are looked up in the resources' /ColorSpace dictionary.
func (e *Extractor) parseColorSpace(obj core.Object, res core.Dict, depth int) (*ColorSpace, error) {
	if depth > maxColorSpaceDepth {
		return nil, fmt.Errorf("color space nested deeper than %d", maxColorSpaceDepth)
	}
	switch v := e.resolve(obj).(type) {
	case core.Name:
		switch v {
		case "DeviceGray", "G", "CalGray":
			return deviceGray, nil
		case "DeviceRGB", "RGB", "CalRGB":
			return deviceRGB, nil
		case "DeviceCMYK", "CMYK":
			return deviceCMYK, nil
		case "Pattern":
			return nil, fmt.Errorf("pattern color space cannot color an image")
		}
		named, _ := e.resolve(res.Get("ColorSpace")).(core.Dict)
		if entry := named.Get(string(v)); entry != nil {
			return e.parseColorSpace(entry, res, depth+1)
		}
		return nil, fmt.Errorf("unknown color space /%s", v)
	case core.Array:
		return e.parseColorSpaceArray(v, res, depth)
	case nil:
		return nil, fmt.Errorf("missing color space")
	default:
		return nil, fmt.Errorf("invalid color space type %T", v)
	}
}

func (e *Extractor) parseColorSpaceArray(arr core.Array, res core.Dict, depth int) (*ColorSpace, error) {
	family, ok := e.resolve(arr.Get(0)).(core.Name)
	if !ok {
		return nil, fmt.Errorf("color space array without a family name")
	}
	switch family {
	case "DeviceGray", "G", "DeviceRGB", "RGB", "DeviceCMYK", "CMYK":
		return e.parseColorSpace(family, res, depth+1)
	case "CalGray":
		return &ColorSpace{Family: "CalGray", Components: 1}, nil
	case "CalRGB":
		return &ColorSpace{Family: "CalRGB", Components: 3}, nil
	case "Lab":
		return &ColorSpace{Family: "Lab", Components: 3}, nil

	case "ICCBased":
		profile, ok := e.resolve(arr.Get(1)).(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("ICCBased without a profile stream")
		}
		if n, ok := profile.Dict.GetInt("N"); ok && (n == 1 || n == 3 || n == 4) {
			return &ColorSpace{Family: "ICCBased", Components: int(n)}, nil
		}
		if alt := profile.Dict.Get("Alternate"); alt != nil {
			return e.parseColorSpace(alt, res, depth+1)
		}
		return nil, fmt.Errorf("ICCBased profile without /N")

	case "Indexed", "I":
		if len(arr) < 4 {
			return nil, fmt.Errorf("indexed color space has %d elements", len(arr))
		}
		base, err := e.parseColorSpace(arr[1], res, depth+1)
		if err != nil {
			return nil, fmt.Errorf("indexed base: %w", err)
		}
		hival, ok := core.ToFloat(e.resolve(arr[2]))
		if !ok || hival < 0 || hival > 255 {
			return nil, fmt.Errorf("indexed hival %v out of range", arr[2])
		}
		var lookup []byte
		switch l := e.resolve(arr[3]).(type) {
		case core.String:
			lookup = []byte(l)
		case core.HexString:
			lookup = []byte(l)
		case *core.Stream:
			data, err := l.Decode()
			if err != nil {
				return nil, fmt.Errorf("indexed lookup: %w", err)
			}
			lookup = data
		default:
			return nil, fmt.Errorf("indexed lookup is %T", l)
		}
		return &ColorSpace{Family: "Indexed", Components: 1, Base: base, HiVal: int(hival), Lookup: lookup}, nil

	case "Separation":
		return &ColorSpace{Family: "Separation", Components: 1}, nil
	case "DeviceN":
		names, ok := e.resolve(arr.Get(1)).(core.Array)
		if !ok || len(names) == 0 {
			return nil, fmt.Errorf("DeviceN without colorant names")
		}
		return &ColorSpace{Family: "DeviceN", Components: len(names)}, nil
	}
	return nil, fmt.Errorf("unsupported color space /%s", family)
}
