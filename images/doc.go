// Package images finds and decodes the images on a page.
//
// An [Extractor] searches the page's /XObject resources, descending into
// form XObjects up to a depth limit, and the inline images of its content
// streams. Each image comes back as a [DecodedImage]: JPEG and JPEG 2000
// data exactly as stored, anything else as unpacked samples together with
// the width, height, bit depth and color space needed to rasterize it.
//
//	ex := images.NewExtractor(doc)
//	imgs, err := ex.ExtractPage(page)
//	for _, img := range imgs {
//		data, mimeType, err := img.Encode()
//		...
//	}
//
// An image that cannot be decoded is reported as an [*ImageError] inside
// err and the others are still returned.
package images
