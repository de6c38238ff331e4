package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	// Register decoders for the formats a picker may hand over.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// NormalizerConfig bounds and encodes normalized images.
type NormalizerConfig struct {
	MaxWidth       int
	MaxHeight      int
	ConvertQuality int // JPEG quality after format conversion
	ResizeQuality  int // JPEG quality after downscaling
}

// DefaultNormalizerConfig returns 1200x1200 bounds, quality 90 for
// conversion and 85 for resizing.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		MaxWidth:       1200,
		MaxHeight:      1200,
		ConvertQuality: 90,
		ResizeQuality:  85,
	}
}

// Blob is the output of normalization.
type Blob struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Normalizer converts images to the canonical format and bounds their size.
type Normalizer struct {
	cfg NormalizerConfig
}

func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	def := DefaultNormalizerConfig()
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = def.MaxWidth
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = def.MaxHeight
	}
	if cfg.ConvertQuality <= 0 {
		cfg.ConvertQuality = def.ConvertQuality
	}
	if cfg.ResizeQuality <= 0 {
		cfg.ResizeQuality = def.ResizeQuality
	}
	return &Normalizer{cfg: cfg}
}

// Normalize runs format conversion then bounding. It never fails: a stage
// that cannot complete leaves the previous stage's blob in place.
func (n *Normalizer) Normalize(ctx context.Context, f File) Blob {
	blob := Blob{Data: f.Data, ContentType: MediaType(f)}

	if !IsCanonical(blob.ContentType) {
		converted, err := n.convert(blob.Data)
		if err != nil {
			slog.Warn("image conversion failed, keeping original", "name", f.Name, "type", blob.ContentType, "error", err.Error())
		} else {
			blob = converted
		}
	} else {
		blob.ContentType = CanonicalType
	}

	if ctx.Err() != nil {
		return blob
	}

	bounded, err := n.bound(blob)
	if err != nil {
		slog.Warn("image resize failed, keeping previous stage", "name", f.Name, "error", err.Error())
		return blob
	}
	return bounded
}

// convert re-encodes any decodable image as JPEG over a white background.
func (n *Normalizer) convert(data []byte) (Blob, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Blob{}, errors.Wrap(err, "failed to decode image")
	}
	return n.encode(flatten(img), n.cfg.ConvertQuality)
}

// bound downscales images exceeding the configured box, keeping aspect ratio.
func (n *Normalizer) bound(blob Blob) (Blob, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(blob.Data))
	if err != nil {
		return blob, errors.Wrap(err, "failed to read image dimensions")
	}
	blob.Width, blob.Height = cfg.Width, cfg.Height

	width, height, ok := fit(cfg.Width, cfg.Height, n.cfg.MaxWidth, n.cfg.MaxHeight)
	if !ok {
		return blob, nil
	}

	img, err := imaging.Decode(bytes.NewReader(blob.Data))
	if err != nil {
		return blob, errors.Wrap(err, "failed to decode image")
	}
	resized := imaging.Resize(img, width, height, imaging.Lanczos)
	return n.encode(flatten(resized), n.cfg.ResizeQuality)
}

func (n *Normalizer) encode(img image.Image, quality int) (Blob, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return Blob{}, errors.Wrap(err, "failed to encode jpeg")
	}
	b := img.Bounds()
	return Blob{
		Data:        buf.Bytes(),
		ContentType: CanonicalType,
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

// flatten composes img over white so transparent areas do not turn black in JPEG.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// fit returns the dimensions of (w, h) scaled into (maxW, maxH).
// ok is false when the image already fits.
func fit(w, h, maxW, maxH int) (int, int, bool) {
	if w <= maxW && h <= maxH {
		return w, h, false
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	return max(nw, 1), max(nh, 1), true
}
