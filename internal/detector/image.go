package detector

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInfo describes a validated image.
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

// InspectImage checks that data is a decodable image without decoding the
// pixels. Supported formats are JPEG, PNG, GIF, BMP, TIFF and WebP.
func InspectImage(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("%w: zero-sized image", ErrInvalidImage)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// scale maps coordinates of a downscaled upload back to the original image.
type scale struct {
	x, y float64
}

var identityScale = scale{x: 1, y: 1}

// fitImage downscales data so its longer side is at most maxSide, re-encoding
// it as JPEG. Images already within bounds, or maxSide <= 0, are sent as is.
func fitImage(data []byte, info ImageInfo, maxSide int) ([]byte, scale, error) {
	if maxSide <= 0 || (info.Width <= maxSide && info.Height <= maxSide) {
		return data, identityScale, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, identityScale, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	var newWidth, newHeight int
	if info.Width > info.Height {
		newWidth = maxSide
		newHeight = max(1, int(float64(info.Height)*float64(maxSide)/float64(info.Width)))
	} else {
		newHeight = maxSide
		newWidth = max(1, int(float64(info.Width)*float64(maxSide)/float64(info.Height)))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 90}); err != nil {
		return nil, identityScale, fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), scale{
		x: float64(info.Width) / float64(newWidth),
		y: float64(info.Height) / float64(newHeight),
	}, nil
}
