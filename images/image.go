package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/tsawler/pdfhtml/core"
)

// Format is the encoding of DecodedImage.Data.
type Format string

const (
	// FormatJPEG is a baseline or progressive JPEG file from DCTDecode.
	FormatJPEG Format = "jpeg"
	// FormatJPX is a JPEG 2000 codestream from JPXDecode.
	FormatJPX Format = "jpx"
	// FormatRaw is unpacked sample data described by the image metadata.
	FormatRaw Format = "raw"
)

// MIMEType returns the media type of an encoded image, or "" for raw
// samples.
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatJPX:
		return "image/jp2"
	}
	return ""
}

// DecodedImage is one image found on a page. JPEG and JPEG 2000 data is
// passed through as stored; everything else is decoded to samples.
type DecodedImage struct {
	Name             string           // XObject name, or "inline-N" for inline images
	Ref              core.IndirectRef // zero for inline and direct images
	Format           Format
	Width            int
	Height           int
	BitsPerComponent int
	ColorSpace       *ColorSpace // nil for image masks and unparsed JPEG spaces
	ImageMask        bool
	Invert           bool // the /Decode array maps samples high to low
	Filters          []string
	Data             []byte
}

// ImageError reports an image that could not be extracted. Other images
// on the same page are unaffected.
type ImageError struct {
	Name string
	Ref  core.IndirectRef
	Err  error
}

func (e *ImageError) Error() string {
	if e.Ref != (core.IndirectRef{}) {
		return fmt.Sprintf("image /%s (%s): %v", e.Name, e.Ref, e.Err)
	}
	return fmt.Sprintf("image /%s: %v", e.Name, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// Encode returns the image as a file of a declared media type: encoded
// formats unchanged, raw samples as PNG.
func (img *DecodedImage) Encode() ([]byte, string, error) {
	if mime := img.Format.MIMEType(); mime != "" {
		return img.Data, mime, nil
	}
	data, err := img.ToPNG()
	if err != nil {
		return nil, "", err
	}
	return data, "image/png", nil
}

// ToPNG converts raw sample data to PNG.
func (img *DecodedImage) ToPNG() ([]byte, error) {
	goImg, err := img.Image()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, goImg); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// maxRowBits bounds one row of samples, so row sizes cannot overflow.
const maxRowBits = 1 << 31

// Image converts raw sample data to an image.Image. Gray, RGB, CMYK,
// Indexed and Separation spaces at 1, 2, 4, 8 or 16 bits per component
// are supported.
func (img *DecodedImage) Image() (image.Image, error) {
	if img.Format != FormatRaw {
		return nil, fmt.Errorf("%s data is not raw samples", img.Format)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", img.Width, img.Height)
	}
	switch img.BitsPerComponent {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("unsupported bits per component: %d", img.BitsPerComponent)
	}

	cs := img.ColorSpace
	if img.ImageMask || cs == nil {
		cs = deviceGray
	}
	comps := cs.Components
	if comps < 1 || comps > 32 {
		return nil, fmt.Errorf("unsupported component count: %d", comps)
	}
	if img.Width > maxRowBits/(comps*img.BitsPerComponent) {
		return nil, fmt.Errorf("image row too large: width %d", img.Width)
	}
	rowBytes := (img.Width*comps*img.BitsPerComponent + 7) / 8
	if img.Height > len(img.Data)/rowBytes {
		return nil, fmt.Errorf("insufficient data: got %d bytes for %d rows of %d", len(img.Data), img.Height, rowBytes)
	}

	s := sampler{bpc: img.BitsPerComponent}
	switch cs.Family {
	case "DeviceGray", "CalGray", "ICCBased", "Separation":
		if cs.Family == "ICCBased" && comps != 1 {
			break
		}
		invert := img.Invert != (cs.Family == "Separation")
		out := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
		for y := 0; y < img.Height; y++ {
			row := img.Data[y*rowBytes:]
			for x := 0; x < img.Width; x++ {
				v := s.scaled(row, x)
				if invert {
					v = 255 - v
				}
				out.Pix[y*out.Stride+x] = v
			}
		}
		return out, nil
	case "Indexed":
		return img.indexed(cs, rowBytes, s)
	}

	switch comps {
	case 3:
		if cs.Family == "Lab" {
			return nil, fmt.Errorf("unsupported color space: %s", cs)
		}
		out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
		for y := 0; y < img.Height; y++ {
			row := img.Data[y*rowBytes:]
			for x := 0; x < img.Width; x++ {
				i := y*out.Stride + x*4
				out.Pix[i+0] = s.scaled(row, x*3)
				out.Pix[i+1] = s.scaled(row, x*3+1)
				out.Pix[i+2] = s.scaled(row, x*3+2)
				out.Pix[i+3] = 255
			}
		}
		return out, nil
	case 4:
		if cs.Family == "DeviceN" {
			return nil, fmt.Errorf("unsupported color space: %s", cs)
		}
		out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
		for y := 0; y < img.Height; y++ {
			row := img.Data[y*rowBytes:]
			for x := 0; x < img.Width; x++ {
				r, g, b := color.CMYKToRGB(s.scaled(row, x*4), s.scaled(row, x*4+1), s.scaled(row, x*4+2), s.scaled(row, x*4+3))
				i := y*out.Stride + x*4
				out.Pix[i+0] = r
				out.Pix[i+1] = g
				out.Pix[i+2] = b
				out.Pix[i+3] = 255
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported color space: %s", cs)
}

// indexed builds a paletted image from an Indexed color space. Indices
// above hival or past the end of the lookup table are black.
func (img *DecodedImage) indexed(cs *ColorSpace, rowBytes int, s sampler) (image.Image, error) {
	base := cs.Base
	if base == nil || base.Components == 0 {
		return nil, fmt.Errorf("indexed color space without a base")
	}
	if cs.HiVal < 0 || cs.HiVal > 255 {
		return nil, fmt.Errorf("indexed hival %d out of range", cs.HiVal)
	}
	palette := make(color.Palette, cs.HiVal+1)
	for i := range palette {
		entry := cs.Lookup[min(i*base.Components, len(cs.Lookup)):]
		if len(entry) < base.Components {
			palette[i] = color.Black
			continue
		}
		switch base.Components {
		case 1:
			palette[i] = color.Gray{Y: entry[0]}
		case 3:
			palette[i] = color.RGBA{R: entry[0], G: entry[1], B: entry[2], A: 255}
		case 4:
			r, g, b := color.CMYKToRGB(entry[0], entry[1], entry[2], entry[3])
			palette[i] = color.RGBA{R: r, G: g, B: b, A: 255}
		default:
			return nil, fmt.Errorf("unsupported indexed base: %s", base)
		}
	}

	out := image.NewPaletted(image.Rect(0, 0, img.Width, img.Height), palette)
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*rowBytes:]
		for x := 0; x < img.Width; x++ {
			idx := s.raw(row, x)
			if int(idx) > cs.HiVal {
				idx = 0
			}
			out.Pix[y*out.Stride+x] = uint8(idx)
		}
	}
	return out, nil
}

// sampler reads packed samples. Rows start on byte boundaries.
type sampler struct {
	bpc int
}

// raw returns sample i of row, unscaled.
func (s sampler) raw(row []byte, i int) uint16 {
	switch s.bpc {
	case 8:
		return uint16(row[i])
	case 16:
		return uint16(row[2*i])<<8 | uint16(row[2*i+1])
	}
	bit := i * s.bpc
	shift := 8 - s.bpc - bit%8
	return uint16(row[bit/8]>>shift) & (1<<s.bpc - 1)
}

// scaled returns sample i of row scaled to 0..255.
func (s sampler) scaled(row []byte, i int) uint8 {
	v := s.raw(row, i)
	switch s.bpc {
	case 8:
		return uint8(v)
	case 16:
		return uint8(v >> 8)
	}
	return uint8(uint32(v) * 255 / (1<<s.bpc - 1))
}
