package filters

import "fmt"

// maxRowBits bounds one predictor row, so the row size cannot overflow.
const maxRowBits = 1 << 31

// applyPredictor undoes a TIFF (2) or PNG (10-15) predictor. Rows are sized
// from Columns, Colors and BitsPerComponent. A trailing partial row is
// dropped.
func applyPredictor(data []byte, predictor int, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)
	if columns < 1 || colors < 1 || bpc < 1 {
		return nil, fmt.Errorf("invalid predictor geometry: columns=%d colors=%d bpc=%d", columns, colors, bpc)
	}
	if colors > 32 || bpc > 16 || columns > maxRowBits/(colors*bpc) {
		return nil, fmt.Errorf("predictor row too large: columns=%d colors=%d bpc=%d", columns, colors, bpc)
	}

	rowBytes := (columns*colors*bpc + 7) / 8
	pixelBytes := (colors*bpc + 7) / 8

	switch {
	case predictor == 2:
		if bpc != 8 {
			return nil, fmt.Errorf("TIFF predictor with %d bits per component", bpc)
		}
		return undoTIFF(data, rowBytes, pixelBytes), nil
	case predictor >= 10 && predictor <= 15:
		return undoPNG(data, rowBytes, pixelBytes)
	default:
		return nil, fmt.Errorf("unsupported predictor: %d", predictor)
	}
}

// undoTIFF reverses horizontal differencing, sample by sample.
func undoTIFF(data []byte, rowBytes, pixelBytes int) []byte {
	rows := len(data) / rowBytes
	out := make([]byte, rows*rowBytes)
	copy(out, data)
	for r := 0; r < rows; r++ {
		row := out[r*rowBytes : (r+1)*rowBytes]
		for i := pixelBytes; i < len(row); i++ {
			row[i] += row[i-pixelBytes]
		}
	}
	return out
}

// undoPNG reverses per-row PNG filtering. Each encoded row carries its own
// filter type byte, so the predictor number only selects PNG mode.
func undoPNG(data []byte, rowBytes, pixelBytes int) ([]byte, error) {
	stride := rowBytes + 1
	rows := len(data) / stride
	if rows == 0 {
		return []byte{}, nil
	}
	out := make([]byte, rows*rowBytes)
	prev := make([]byte, rowBytes)

	for r := 0; r < rows; r++ {
		in := data[r*stride : (r+1)*stride]
		cur := out[r*rowBytes : (r+1)*rowBytes]
		copy(cur, in[1:])

		switch in[0] {
		case 0:
		case 1:
			for i := pixelBytes; i < rowBytes; i++ {
				cur[i] += cur[i-pixelBytes]
			}
		case 2:
			for i := 0; i < rowBytes; i++ {
				cur[i] += prev[i]
			}
		case 3:
			for i := 0; i < rowBytes; i++ {
				var left int
				if i >= pixelBytes {
					left = int(cur[i-pixelBytes])
				}
				cur[i] += byte((left + int(prev[i])) / 2)
			}
		case 4:
			for i := 0; i < rowBytes; i++ {
				var left, upLeft byte
				if i >= pixelBytes {
					left = cur[i-pixelBytes]
					upLeft = prev[i-pixelBytes]
				}
				cur[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("unknown PNG filter type %d in row %d", in[0], r)
		}
		prev = cur
	}
	return out, nil
}

// paeth picks whichever of left, above or upper-left is closest to
// left+above-upperLeft.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
