package filters

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// Params represents decode parameters from PDF stream dictionaries.
// Common parameters include Predictor, Columns, Colors, and BitsPerComponent.
type Params map[string]interface{}

// FlateDecode decompresses Flate (zlib/deflate) compressed data and applies
// the predictor named in params, if any.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	out, err := inflate(data)
	if err != nil {
		return nil, err
	}

	if predictor := getIntParam(params, "Predictor", 1); predictor > 1 {
		out, err = applyPredictor(out, predictor, params)
		if err != nil {
			return nil, fmt.Errorf("predictor failed: %w", err)
		}
	}
	return out, nil
}

// inflate decompresses a zlib stream. Many writers truncate the stream or
// omit the Adler-32 checksum, so whatever was inflated before an
// unexpected end is kept.
func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid zlib header: %w", err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	_, err = io.Copy(&buf, zr)
	switch {
	case err == nil:
		return buf.Bytes(), nil
	case buf.Len() > 0 && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zlib.ErrChecksum)):
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("inflate: %w", err)
	}
}

// getIntParam extracts an integer parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to an integer.
func getIntParam(params Params, key string, defaultValue int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

// getBoolParam extracts a boolean parameter from Params, returning defaultValue
// if the parameter is missing or not a boolean.
func getBoolParam(params Params, key string, defaultValue bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return defaultValue
}
