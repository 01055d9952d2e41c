package converter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

func decodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// flatten draws img over a white canvas; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 95
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flatten(img), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func toJPEG(data []byte, quality int) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	return encodeJPEG(img, quality)
}

func toPNG(data []byte) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func toGrayscale(data []byte, quality int) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	return encodeJPEG(imaging.Grayscale(flatten(img)), quality)
}

// toWebP shells out to cwebp, falling back to ImageMagick.
func (c *DefaultConverter) toWebP(ctx context.Context, data []byte, quality int) ([]byte, error) {
	if c.tools.WebP == "" && c.tools.ImageMagick == "" {
		return nil, fmt.Errorf("no webp encoder installed")
	}
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	dir, cleanup, err := c.workDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	inputPath := filepath.Join(dir, "input.jpg")
	outputPath := filepath.Join(dir, "output.webp")
	if err := os.WriteFile(inputPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write input: %w", err)
	}

	q := fmt.Sprintf("%d", quality)
	if c.tools.WebP != "" {
		err = c.run(ctx, c.tools.WebP, "-quiet", "-q", q, inputPath, "-o", outputPath)
	} else {
		err = c.run(ctx, c.tools.ImageMagick, inputPath, "-quality", q, outputPath)
	}
	if err != nil {
		return nil, err
	}

	out, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("encoder did not create output: %w", err)
	}
	return out, nil
}
