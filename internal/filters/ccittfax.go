package filters

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/image/ccitt"
)

// maxFaxColumns bounds /Columns; the decoder allocates rows of that width.
const maxFaxColumns = 1 << 20

// CCITTFaxDecode decodes CCITT Group 3 or Group 4 fax data into packed
// 1-bit rows, 0 meaning black unless BlackIs1 is set.
//
// Parameters:
//   - K: below zero selects Group 4, otherwise Group 3
//   - Columns: width in pixels (default 1728)
//   - Rows: height in pixels; 0 detects the height from the data
//   - BlackIs1: inverts the output polarity
//   - EncodedByteAlign: rows start on byte boundaries
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1728)
	rows := getIntParam(params, "Rows", 0)
	if columns < 1 || columns > maxFaxColumns {
		return nil, fmt.Errorf("invalid fax width: %d columns", columns)
	}

	sf := ccitt.Group3
	if getIntParam(params, "K", 0) < 0 {
		sf = ccitt.Group4
	}
	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}

	opts := &ccitt.Options{
		Align:  getBoolParam(params, "EncodedByteAlign", false),
		Invert: getBoolParam(params, "BlackIs1", false),
	}
	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, columns, rows, opts)
	return io.ReadAll(r)
}
