package filters

import (
	"errors"
	"fmt"
)

// Name identifies a standard stream filter.
type Name int

const (
	Unknown Name = iota
	Flate
	LZW
	ASCIIHex
	ASCII85
	RunLength
	CCITTFax
	JBIG2
	DCT
	JPX
	Crypt
)

var filterNames = map[string]Name{
	"FlateDecode":     Flate,
	"Fl":              Flate,
	"LZWDecode":       LZW,
	"LZW":             LZW,
	"ASCIIHexDecode":  ASCIIHex,
	"AHx":             ASCIIHex,
	"ASCII85Decode":   ASCII85,
	"A85":             ASCII85,
	"RunLengthDecode": RunLength,
	"RL":              RunLength,
	"CCITTFaxDecode":  CCITTFax,
	"CCF":             CCITTFax,
	"JBIG2Decode":     JBIG2,
	"DCTDecode":       DCT,
	"DCT":             DCT,
	"JPXDecode":       JPX,
	"Crypt":           Crypt,
}

// Lookup maps a filter name, full or abbreviated, to its Name.
func Lookup(name string) Name {
	return filterNames[name]
}

func (n Name) String() string {
	switch n {
	case Flate:
		return "FlateDecode"
	case LZW:
		return "LZWDecode"
	case ASCIIHex:
		return "ASCIIHexDecode"
	case ASCII85:
		return "ASCII85Decode"
	case RunLength:
		return "RunLengthDecode"
	case CCITTFax:
		return "CCITTFaxDecode"
	case JBIG2:
		return "JBIG2Decode"
	case DCT:
		return "DCTDecode"
	case JPX:
		return "JPXDecode"
	case Crypt:
		return "Crypt"
	default:
		return "Unknown"
	}
}

// IsImageCodec reports whether the filter's output is an encoded image
// format that is passed through rather than decoded to samples.
func (n Name) IsImageCodec() bool {
	return n == DCT || n == JPX
}

// ErrorKind classifies a FilterError.
type ErrorKind int

const (
	// UnsupportedFilter means the filter is unknown or not implemented.
	UnsupportedFilter ErrorKind = iota + 1
	// CorruptStreamData means the filter is known but the data is invalid.
	CorruptStreamData
)

func (k ErrorKind) String() string {
	switch k {
	case UnsupportedFilter:
		return "UnsupportedFilter"
	case CorruptStreamData:
		return "CorruptStreamData"
	default:
		return "Unknown"
	}
}

// FilterError reports a failure to decode stream data.
type FilterError struct {
	Kind   ErrorKind
	Filter string
	Err    error
}

func (e *FilterError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Filter)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Filter, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// IsKind reports whether err is a FilterError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *FilterError
	return errors.As(err, &fe) && fe.Kind == kind
}

// Decode applies the named filter to data. DCT and JPX data is returned
// unchanged so the caller can pass the encoded image through, as is data
// under the Identity crypt filter.
func Decode(name string, data []byte, params Params) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch Lookup(name) {
	case Flate:
		out, err = FlateDecode(data, params)
	case LZW:
		out, err = LZWDecode(data, params)
	case ASCIIHex:
		out, err = ASCIIHexDecode(data)
	case ASCII85:
		out, err = ASCII85Decode(data)
	case RunLength:
		out, err = RunLengthDecode(data)
	case CCITTFax:
		out, err = CCITTFaxDecode(data, params)
	case DCT, JPX:
		return data, nil
	case Crypt:
		if cryptName(params) == "Identity" {
			return data, nil
		}
		return nil, &FilterError{Kind: UnsupportedFilter, Filter: name, Err: fmt.Errorf("crypt filter /%s", cryptName(params))}
	case JBIG2:
		return nil, &FilterError{Kind: UnsupportedFilter, Filter: name, Err: errors.New("not implemented")}
	default:
		return nil, &FilterError{Kind: UnsupportedFilter, Filter: name}
	}
	if err != nil {
		return nil, &FilterError{Kind: CorruptStreamData, Filter: name, Err: err}
	}
	return out, nil
}

// cryptName returns the /Name decode parameter; a missing name means
// Identity.
func cryptName(params Params) string {
	if name, ok := params["Name"].(string); ok && name != "" {
		return name
	}
	if _, ok := params["Name"]; ok {
		return "?"
	}
	return "Identity"
}
