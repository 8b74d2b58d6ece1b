package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
)

var encoder = png.Encoder{CompressionLevel: png.BestSpeed}

// EncodePNG returns img as a PNG data URL, suitable for an <img> src attribute.
func EncodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
