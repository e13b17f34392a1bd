package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"strings"
)

// ImageFeatures are coarse pixel statistics of an uploaded image.
type ImageFeatures struct {
	Width     int
	Height    int
	Density   float64 // mean luminance in [0,1]
	Contrast  float64 // luminance standard deviation in [0,1]
	Grayscale bool
}

// scanKeywords mark OCR text that describes imaging rather than a written report.
var scanKeywords = []string{
	"x-ray", "xray", "radiograph", "ct scan", "mri", "ultrasound",
	"lateral view", "anterior", "posterior", "contrast",
	"radiology", "imaging", "scan", "radiological",
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (*Document, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New("could not read image file")
	}
	if e.ocr == nil {
		return nil, ErrNoOCR
	}

	text, err := e.ocr.Recognize(ctx, data, http.DetectContentType(data))
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}

	features := analyzeImage(img)
	return &Document{
		Text:   text,
		Kind:   KindImage,
		Layout: detectLayout(features, text),
		Image:  &features,
	}, nil
}

// analyzeImage computes luminance statistics. Large images are sampled on a grid of at most
// 512x512 points.
func analyzeImage(img image.Image) ImageFeatures {
	bounds := img.Bounds()
	features := ImageFeatures{Width: bounds.Dx(), Height: bounds.Dy(), Grayscale: true}
	if features.Width == 0 || features.Height == 0 {
		return features
	}

	stepX := max(1, features.Width/512)
	stepY := max(1, features.Height/512)

	var sum, sumSq, n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			if features.Grayscale && (absDiff(r, g) > 0x0300 || absDiff(g, b) > 0x0300) {
				features.Grayscale = false
			}
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 0xffff
			sum += lum
			sumSq += lum * lum
			n++
		}
	}

	mean := sum / n
	features.Density = mean
	features.Contrast = math.Sqrt(math.Max(0, sumSq/n-mean*mean))
	return features
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// detectLayout decides whether an image upload is a medical scan or a photographed report.
// Grayscale images and images whose text mentions imaging terms count as scans.
func detectLayout(features ImageFeatures, text string) Layout {
	if features.Grayscale {
		return LayoutMedicalScan
	}
	lower := strings.ToLower(text)
	for _, keyword := range scanKeywords {
		if strings.Contains(lower, keyword) {
			return LayoutMedicalScan
		}
	}
	return LayoutPhotoOfReport
}
