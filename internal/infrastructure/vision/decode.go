package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/webp"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

// maxDecodedPixels caps the decoded frame. Compressed formats can expand a
// few bytes into gigabytes of pixels.
const maxDecodedPixels = 40_000_000

// DecodeImage reads at most maxBytes and decodes any registered format
// (JPEG, PNG, GIF, WebP). Anything else, and any frame over the pixel budget,
// is ErrInvalidInput.
func DecodeImage(r io.Reader, maxBytes int64) (image.Image, string, error) {
	return decodeImage(r, maxBytes, maxDecodedPixels)
}

func decodeImage(r io.Reader, maxBytes int64, maxPixels int64) (image.Image, string, error) {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	raw, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(raw) == 0 {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", errors.New("empty image payload"))
	}
	if int64(len(raw)) > maxBytes {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", fmt.Errorf("image exceeds %d bytes", maxBytes))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", errors.New("image has no pixels"))
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, "", domain.WrapError(
			domain.ErrInvalidInput,
			"decode image",
			fmt.Errorf("image is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, maxPixels),
		)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", err)
	}
	if img.Bounds().Empty() {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", errors.New("image has no pixels"))
	}
	return img, format, nil
}
