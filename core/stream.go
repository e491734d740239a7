package core

import (
	"fmt"

	"github.com/tsawler/pdfhtml/internal/filters"
)

// Filters returns the stream's filter names in application order.
func (s *Stream) Filters() []string {
	switch f := s.Dict.Get("Filter").(type) {
	case Name:
		return []string{string(f)}
	case Array:
		names := make([]string, 0, len(f))
		for _, item := range f {
			if n, ok := item.(Name); ok {
				names = append(names, string(n))
			}
		}
		return names
	}
	return nil
}

// Decode applies the stream's filter chain to its raw data. DCTDecode and
// JPXDecode leave the data unchanged. Failures are *filters.FilterError
// values wrapped with the position of the failing filter.
func (s *Stream) Decode() ([]byte, error) {
	filterObj := s.Dict.Get("Filter")
	if filterObj == nil {
		return s.Data, nil
	}
	if f, ok := filterObj.(Array); ok {
		for i, item := range f {
			if _, ok := item.(Name); !ok {
				return nil, fmt.Errorf("filter %d is not a name: %T", i, item)
			}
		}
	} else if _, ok := filterObj.(Name); !ok {
		return nil, fmt.Errorf("invalid Filter type: %T", filterObj)
	}

	data := s.Data
	for i, name := range s.Filters() {
		var err error
		data, err = filters.Decode(name, data, dictToParams(s.decodeParams(i)))
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s) failed: %w", i, name, err)
		}
	}
	return data, nil
}

// decodeParams returns the DecodeParms entry for the i-th filter. A single
// dictionary applies to every filter.
func (s *Stream) decodeParams(i int) Dict {
	switch p := s.Dict.Get("DecodeParms").(type) {
	case Dict:
		return p
	case Array:
		if d, ok := p.Get(i).(Dict); ok {
			return d
		}
	}
	return nil
}

// dictToParams converts a Dict to filters.Params, translating PDF object
// types to Go primitive types (Int->int, Real->float64, Bool->bool, etc.).
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}

	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case String:
			params[k] = string(obj)
		case Name:
			params[k] = string(obj)
		default:
			params[k] = v
		}
	}
	return params
}
