package transform

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Image generation parameters.
const (
	ImageSize         = 512
	DenoisingStrength = 0.6
	DefaultPrompt     = "Make this look more artistic"
)

const pngDataURIPrefix = "data:image/png;base64,"

// PrepareImage decodes a PNG, JPEG, GIF or WebP image, flattens it to opaque
// RGB, resizes it to ImageSize x ImageSize and returns it as a PNG data URI.
func PrepareImage(data []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, ImageSize, ImageSize))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return "", fmt.Errorf("encoding png: %w", err)
	}

	return pngDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// AsDataURI prefixes bare base64 PNG output with the data URI scheme.
func AsDataURI(b64 string) string {
	if strings.HasPrefix(b64, "data:") {
		return b64
	}
	return pngDataURIPrefix + b64
}
