package scanning

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// SystemOCR is the on-device text-detection tier. It uses whatever tesseract
// binary the platform provides; when none is installed the capability is
// simply unavailable and the orchestrator moves on.
type SystemOCR struct {
	language string
}

// NewSystemOCR creates a SystemOCR engine. language defaults to "eng".
func NewSystemOCR(language string) *SystemOCR {
	if language == "" {
		language = "eng"
	}
	return &SystemOCR{language: language}
}

// Source identifies this engine's tier.
func (s *SystemOCR) Source() Source {
	return SourceSystem
}

// Scan runs the platform tesseract binary over the image.
func (s *SystemOCR) Scan(ctx context.Context, png []byte) (*Output, error) {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		return nil, fmt.Errorf("%w: no tesseract binary on PATH", ErrCapabilityUnavailable)
	}

	cmd := exec.CommandContext(ctx, path, "stdin", "stdout", "-l", s.language)
	cmd.Stdin = bytes.NewReader(png)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("running tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return nil, ErrEmptyResult
	}

	return &Output{Kind: OutputText, Text: text}, nil
}

// LocalOCR is the bundled OCR tier, an in-process tesseract binding with light
// image preprocessing. It is the fallback when the system tier produces
// nothing.
type LocalOCR struct {
	language string
}

// NewLocalOCR creates a LocalOCR engine. language defaults to "eng".
func NewLocalOCR(language string) *LocalOCR {
	if language == "" {
		language = "eng"
	}
	return &LocalOCR{language: language}
}

// Source identifies this engine's tier.
func (l *LocalOCR) Source() Source {
	return SourceLocalOCR
}

// Scan preprocesses the image (grayscale, upscale small photos) and recognizes
// it in process.
func (l *LocalOCR) Scan(ctx context.Context, png []byte) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prepared, err := preprocessForOCR(png)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(l.language); err != nil {
		return nil, fmt.Errorf("%w: language %q not available: %v", ErrCapabilityUnavailable, l.language, err)
	}
	if err := client.SetImageFromBytes(prepared); err != nil {
		return nil, fmt.Errorf("loading image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResult
	}

	return &Output{Kind: OutputText, Text: text}, nil
}

// preprocessForOCR grayscales the image and upscales small phone photos, which
// measurably improves tesseract accuracy on receipts.
func preprocessForOCR(png []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(png))
	if err != nil {
		return nil, fmt.Errorf("decoding image for OCR: %w", err)
	}

	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < 800 {
		gray = imaging.Resize(gray, 0, 1200, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding preprocessed image: %w", err)
	}
	return buf.Bytes(), nil
}
