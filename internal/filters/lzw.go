package filters

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hhrutter/lzw"
)

// LZWDecode decompresses LZW-coded data. EarlyChange defaults to 1, which
// switches to the next code width one code early as most PDF writers do.
// Predictors are applied as for FlateDecode.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	earlyChange := getIntParam(params, "EarlyChange", 1)

	rc := lzw.NewReader(bytes.NewReader(data), earlyChange == 1)
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("lzw decompression failed: %w", err)
	}

	out := buf.Bytes()
	if predictor := getIntParam(params, "Predictor", 1); predictor > 1 {
		var err error
		out, err = applyPredictor(out, predictor, params)
		if err != nil {
			return nil, fmt.Errorf("predictor failed: %w", err)
		}
	}
	return out, nil
}
