package utils

import (
	"bytes"
	"fmt"
	"image/png"
	"log"
	"net/http"

	gwebp "github.com/gen2brain/webp"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// DetectImageMIME - sniff the content type of raw image bytes.
// Falls back to image/png when sniffing is inconclusive; the transform
// service treats PNG as the neutral input format anyway.
func DetectImageMIME(data []byte) string {
	mime := http.DetectContentType(data)
	switch mime {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return mime
	default:
		return "image/png"
	}
}

// ConvertPNGToWebP - lossy WebP encode of a PNG, used for the preview object
// stored next to each artifact.
func ConvertPNGToWebP(pngData []byte, quality float32) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var webpBuffer bytes.Buffer
	if err := webp.Encode(&webpBuffer, img, options); err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}

	webpData := webpBuffer.Bytes()

	log.Printf("🔄 PNG converted to WebP: %d bytes → %d bytes (%.1f%% reduction)",
		len(pngData), len(webpData),
		float64(len(pngData)-len(webpData))/float64(len(pngData))*100)

	return webpData, nil
}

// ConvertWebPToPNG - decode a WebP source image and re-encode it as PNG for
// the transform request. Pure-Go decoder so the worker runs without libwebp.
func ConvertWebPToPNG(webpData []byte) ([]byte, error) {
	img, err := gwebp.Decode(bytes.NewReader(webpData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode WebP: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	log.Printf("🔄 WebP source normalized to PNG: %d bytes → %d bytes", len(webpData), buf.Len())
	return buf.Bytes(), nil
}
