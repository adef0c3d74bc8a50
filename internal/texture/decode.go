package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for image data no decoder recognises.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var decoders = map[string]func(data []byte) (image.Image, error){
	"png":  func(data []byte) (image.Image, error) { return png.Decode(bytes.NewReader(data)) },
	"jpeg": func(data []byte) (image.Image, error) { return jpeg.Decode(bytes.NewReader(data)) },
	"gif":  func(data []byte) (image.Image, error) { return gif.Decode(bytes.NewReader(data)) },
	"bmp":  func(data []byte) (image.Image, error) { return bmp.Decode(bytes.NewReader(data)) },
	"tiff": func(data []byte) (image.Image, error) { return tiff.Decode(bytes.NewReader(data)) },
	"webp": func(data []byte) (image.Image, error) { return webp.Decode(bytes.NewReader(data)) },
	"tga":  DecodeTGA,
}

// FormatForExt maps a file extension to a decoder name.
func FormatForExt(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return "png"
	case "jpg", "jpeg":
		return "jpeg"
	case "gif":
		return "gif"
	case "bmp":
		return "bmp"
	case "tif", "tiff":
		return "tiff"
	case "webp":
		return "webp"
	case "tga":
		return "tga"
	}
	return ""
}

// DetectFormat guesses the format from the file signature. TGA has no
// signature and is never detected.
func DetectFormat(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "jpeg"
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return "gif"
	case bytes.HasPrefix(data, []byte("BM")):
		return "bmp"
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return "tiff"
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "webp"
	}
	return ""
}

// Decode decodes data using the decoder for ext. If that fails, or ext is
// unknown, the format detected from the data is tried instead. It returns
// the image and the name of the format that decoded it.
func Decode(data []byte, ext string) (image.Image, string, error) {
	format := FormatForExt(ext)
	if format != "" {
		img, err := decoders[format](data)
		if err == nil {
			return img, format, nil
		}
		detected := DetectFormat(data)
		if detected == "" || detected == format {
			return nil, format, fmt.Errorf("%s: %w", format, err)
		}
		fallback, fallbackErr := decoders[detected](data)
		if fallbackErr != nil {
			return nil, format, fmt.Errorf("%s: %w (as %s: %v)", format, err, detected, fallbackErr)
		}
		return fallback, detected, nil
	}

	detected := DetectFormat(data)
	if detected == "" {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	img, err := decoders[detected](data)
	if err != nil {
		return nil, detected, fmt.Errorf("%s: %w", detected, err)
	}
	return img, detected, nil
}
