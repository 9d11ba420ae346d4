package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"

	"stylistapi/models"
)

const (
	imageFetchTimeout = 10 * time.Second
	// garments and person photos are downsized into this bounding box
	MaxImageWidth  = 1024
	MaxImageHeight = 1024
)

var imageFetchClient = &http.Client{Timeout: imageFetchTimeout}

// FetchImage downloads and normalizes a remote image. It is the only boundary
// that talks to arbitrary external URLs, so it fails closed: any scheme,
// network, content-type or decode problem yields nil instead of an error.
func FetchImage(rawURL string) *models.ImageData {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		fmt.Printf("[Images] Invalid URL scheme: %s\n", rawURL)
		return nil
	}

	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := imageFetchClient.Do(req)
	if err != nil {
		fmt.Printf("[Images] Failed to download image from %s: %v\n", rawURL, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fmt.Printf("[Images] Bad status %d for %s\n", resp.StatusCode, rawURL)
		return nil
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		fmt.Printf("[Images] Non-image content type %q for %s\n", contentType, rawURL)
		return nil
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		fmt.Printf("[Images] Error reading image body from %s: %v\n", rawURL, err)
		return nil
	}

	img, err := DecodeImage(buf.Bytes())
	if err != nil {
		fmt.Printf("[Images] Error decoding image from %s: %v\n", rawURL, err)
		return nil
	}
	return NormalizeImage(img)
}

// DecodeImage decodes png/jpeg/gif via the stdlib and falls back to webp,
// which the search provider serves a lot of.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	webpImg, webpErr := nativewebp.Decode(bytes.NewReader(data))
	if webpErr == nil {
		return webpImg, nil
	}
	return nil, fmt.Errorf("failed to decode image: %w", err)
}

// NormalizeImage converts to RGBA, downsizes into the bounding box while
// preserving aspect ratio, and re-encodes as PNG.
func NormalizeImage(img image.Image) *models.ImageData {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	targetW, targetH := width, height
	if width > MaxImageWidth || height > MaxImageHeight {
		scale := math.Min(float64(MaxImageWidth)/float64(width), float64(MaxImageHeight)/float64(height))
		targetW = int(math.Max(1, math.Floor(float64(width)*scale)))
		targetH = int(math.Max(1, math.Floor(float64(height)*scale)))
	}

	normalized := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(normalized, normalized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, normalized); err != nil {
		fmt.Printf("[Images] Failed to encode image to png: %v\n", err)
		return nil
	}
	return &models.ImageData{
		Data:     buf.Bytes(),
		MIMEType: "image/png",
		Width:    targetW,
		Height:   targetH,
	}
}

// ImageFromBytes decodes and normalizes caller-supplied image bytes (uploads).
func ImageFromBytes(data []byte) (*models.ImageData, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	normalized := NormalizeImage(img)
	if normalized == nil {
		return nil, fmt.Errorf("failed to normalize image")
	}
	return normalized, nil
}

// WhitenBackgroundFeathered applies a soft threshold to whiten the background
// of flat-lay garment shots before composition. It uses a transition range to
// smoothly blend pixels towards white, avoiding hard edges, and protects a
// central area of the image where the garment sits.
func WhitenBackgroundFeathered(imageBytes []byte, lowerThreshold, upperThreshold uint8, centralProtectionRatio float64) ([]byte, error) {
	if lowerThreshold >= upperThreshold {
		return nil, fmt.Errorf("lowerThreshold must be less than upperThreshold")
	}
	if centralProtectionRatio < 0.0 || centralProtectionRatio > 1.0 {
		return nil, fmt.Errorf("centralProtectionRatio must be between 0.0 and 1.0")
	}

	img, err := DecodeImage(imageBytes)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Max.X, bounds.Max.Y
	newImg := image.NewRGBA(bounds)

	protectedWidth := int(float64(width) * centralProtectionRatio)
	protectedHeight := int(float64(height) * centralProtectionRatio)
	x0 := (width - protectedWidth) / 2
	y0 := (height - protectedHeight) / 2
	x1 := x0 + protectedWidth
	y1 := y0 + protectedHeight

	transitionRange := float64(upperThreshold - lowerThreshold)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			originalColor := img.At(x, y)

			if x >= x0 && x < x1 && y >= y0 && y < y1 {
				newImg.Set(x, y, originalColor)
				continue
			}

			r, g, b, a := originalColor.RGBA()
			r8 := uint8(r >> 8)
			g8 := uint8(g >> 8)
			b8 := uint8(b >> 8)
			a8 := uint8(a >> 8)

			// luminance is a better brightness measure than raw channels
			luminance := 0.299*float64(r8) + 0.587*float64(g8) + 0.114*float64(b8)

			if luminance <= float64(lowerThreshold) {
				newImg.Set(x, y, originalColor)
			} else if luminance >= float64(upperThreshold) {
				newImg.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: a8})
			} else {
				blendFactor := (luminance - float64(lowerThreshold)) / transitionRange

				newR := uint8(math.Round(float64(r8)*(1.0-blendFactor) + 255.0*blendFactor))
				newG := uint8(math.Round(float64(g8)*(1.0-blendFactor) + 255.0*blendFactor))
				newB := uint8(math.Round(float64(b8)*(1.0-blendFactor) + 255.0*blendFactor))

				newImg.Set(x, y, color.RGBA{R: newR, G: newG, B: newB, A: a8})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, newImg); err != nil {
		return nil, fmt.Errorf("failed to encode image to png: %w", err)
	}
	return buf.Bytes(), nil
}
