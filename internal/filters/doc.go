// Package filters decodes PDF stream data.
//
// Each standard filter is a pure function from encoded bytes to decoded
// bytes. Decode dispatches on the filter name, accepting the abbreviated
// names used in inline images:
//
//	out, err := filters.Decode("FlateDecode", data, filters.Params{
//	    "Predictor": 12,
//	    "Columns":   100,
//	})
//
// DCTDecode and JPXDecode data is returned unchanged, so JPEG and JPEG 2000
// images can be written out as-is. JBIG2Decode, Crypt and unknown names
// fail with a FilterError of kind UnsupportedFilter; invalid data for a
// known filter fails with kind CorruptStreamData.
//
// Flate and LZW honour the TIFF (2) and PNG (10-15) predictors.
package filters
