package font

import "strings"

// Widths of the printable ASCII range 32..126 for the standard fonts, in
// thousandths of an em.
var (
	helveticaWidths = [95]float64{
		278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
		1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
		333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
		556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
	}
	helveticaBoldWidths = [95]float64{
		278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
		1015, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
		333, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
		611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 334, 260, 334, 584,
	}
	timesWidths = [95]float64{
		250, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
		1015, 722, 667, 667, 722, 611, 556, 722, 722, 333, 389, 722, 611, 889, 722, 722,
		556, 722, 667, 556, 611, 722, 722, 944, 722, 722, 611, 278, 278, 278, 469, 556,
		333, 444, 500, 444, 500, 444, 333, 500, 500, 278, 278, 500, 278, 778, 500, 500,
		500, 500, 333, 389, 278, 500, 500, 722, 500, 500, 444, 334, 260, 334, 584,
	}
	timesBoldWidths = [95]float64{
		250, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
		1015, 722, 667, 722, 722, 667, 611, 778, 778, 389, 500, 778, 667, 944, 722, 778,
		611, 778, 722, 556, 667, 722, 722, 1000, 722, 722, 667, 278, 278, 278, 469, 556,
		333, 500, 556, 444, 556, 444, 333, 500, 556, 278, 333, 556, 278, 833, 556, 500,
		556, 556, 444, 389, 333, 556, 500, 722, 500, 500, 444, 334, 260, 334, 584,
	}
	courierWidths = func() (w [95]float64) {
		for i := range w {
			w[i] = 600
		}
		return w
	}()
)

var standardFonts = map[string]*[95]float64{
	"Helvetica":             &helveticaWidths,
	"Helvetica-Oblique":     &helveticaWidths,
	"Helvetica-Bold":        &helveticaBoldWidths,
	"Helvetica-BoldOblique": &helveticaBoldWidths,
	"Arial":                 &helveticaWidths,
	"Arial,Bold":            &helveticaBoldWidths,
	"Times-Roman":           &timesWidths,
	"Times-Italic":          &timesWidths,
	"Times-Bold":            &timesBoldWidths,
	"Times-BoldItalic":      &timesBoldWidths,
	"TimesNewRoman":         &timesWidths,
	"TimesNewRoman,Bold":    &timesBoldWidths,
	"Courier":               &courierWidths,
	"Courier-Oblique":       &courierWidths,
	"Courier-Bold":          &courierWidths,
	"Courier-BoldOblique":   &courierWidths,
	"CourierNew":            &courierWidths,
}

// standardWidths returns the built-in widths for a standard font name,
// ignoring a subset prefix such as "ABCDEF+". It returns nil for other
// fonts, Symbol and ZapfDingbats included.
func standardWidths(baseFont string) *[95]float64 {
	if i := strings.IndexByte(baseFont, '+'); i == 6 {
		baseFont = baseFont[i+1:]
	}
	return standardFonts[baseFont]
}

// IsStandardFont reports whether baseFont has built-in widths.
func IsStandardFont(baseFont string) bool {
	return standardWidths(baseFont) != nil
}
