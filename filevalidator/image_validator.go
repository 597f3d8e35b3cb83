package filevalidator

import (
	"bytes"
	"errors"
	"image"
	"io"

	// Registered decoders determine which formats DecodeConfig accepts.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// imageHeaderSize is how much of the stream is buffered before handing
// it to DecodeConfig. Enough for every registered format's dimensions.
const imageHeaderSize = 1024

// ImageValidator checks that an upload decodes as an image and that its
// dimensions stay inside configured bounds. The pixel ceiling guards
// against decompression bombs: a tiny file can declare a huge canvas.
// This is type validation, not security scanning.
type ImageValidator struct {
	MaxWidth  int
	MaxHeight int
	MaxPixels int
	MinWidth  int
	MinHeight int
}

// DefaultImageValidator accepts anything up to 10000 pixels per axis
// and 50 megapixels in total.
func DefaultImageValidator() *ImageValidator {
	return &ImageValidator{
		MaxWidth:  10000,
		MaxHeight: 10000,
		MaxPixels: 50_000_000,
		MinWidth:  1,
		MinHeight: 1,
	}
}

// ValidateContent decodes only the image header, never the full pixel
// data, so oversized images are rejected without loading them.
func (v *ImageValidator) ValidateContent(reader io.Reader, size int64) error {
	cfg, err := decodeConfig(reader)
	if err != nil {
		return err
	}

	switch {
	case cfg.Width > v.MaxWidth:
		return contentErrorf("image width %d exceeds maximum %d", cfg.Width, v.MaxWidth)
	case cfg.Height > v.MaxHeight:
		return contentErrorf("image height %d exceeds maximum %d", cfg.Height, v.MaxHeight)
	case cfg.Width < v.MinWidth:
		return contentErrorf("image width %d below minimum %d", cfg.Width, v.MinWidth)
	case cfg.Height < v.MinHeight:
		return contentErrorf("image height %d below minimum %d", cfg.Height, v.MinHeight)
	}

	if pixels := cfg.Width * cfg.Height; pixels > v.MaxPixels {
		return contentErrorf("total pixels %d exceeds maximum %d", pixels, v.MaxPixels)
	}
	return nil
}

// decodeConfig reads just enough of the stream to learn the image's
// dimensions. The sniffed header is stitched back in front of the
// remaining stream because some decoders want more than the magic
// bytes, and the reader may not be seekable.
func decodeConfig(reader io.Reader) (image.Config, error) {
	header := make([]byte, imageHeaderSize)
	n, err := io.ReadFull(reader, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return image.Config{}, NewValidationError(ErrorTypeContent, "failed to read image header")
	}

	cfg, _, err := image.DecodeConfig(io.MultiReader(bytes.NewReader(header[:n]), reader))
	if err != nil {
		return image.Config{}, contentErrorf("cannot decode image: %v", err)
	}
	return cfg, nil
}

// SupportedMIMETypes lists the formats the registered decoders accept.
// image/jpg is not a real MIME type but appears in the wild.
func (v *ImageValidator) SupportedMIMETypes() []string {
	return []string{
		MIMETypeJPEG,
		"image/jpg",
		MIMETypePNG,
		MIMETypeGIF,
		MIMETypeWebP,
		MIMETypeBMP,
		MIMETypeTIFF,
	}
}
