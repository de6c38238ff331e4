package extract

import (
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/hrygo/shopfloor/plugin/textextract"
)

// ImageReader reads text from an image (OCR).
type ImageReader interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

// DocumentReader reads text from a document (PDF, Office).
type DocumentReader interface {
	ExtractText(ctx context.Context, data []byte, contentType string) (*textextract.Result, error)
}

// Reader routes a Source to the engine that can read it.
// Either engine may be nil; sources needing a missing engine fail.
type Reader struct {
	Images    ImageReader
	Documents DocumentReader
}

// Text returns the plain text of a source.
func (r *Reader) Text(ctx context.Context, src Source) (string, error) {
	if strings.TrimSpace(src.Text) != "" {
		return src.Text, nil
	}
	if len(src.Data) == 0 {
		return "", errors.New("empty source")
	}

	contentType := contentTypeOf(src)
	switch {
	case strings.HasPrefix(contentType, "text/plain"):
		return string(src.Data), nil
	case strings.HasPrefix(contentType, "image/"):
		if r == nil || r.Images == nil {
			return "", errors.Errorf("no OCR engine configured for %s", contentType)
		}
		return r.Images.ExtractText(ctx, src.Data, contentType)
	default:
		if r == nil || r.Documents == nil {
			return "", errors.Errorf("no document engine configured for %s", contentType)
		}
		res, err := r.Documents.ExtractText(ctx, src.Data, contentType)
		if err != nil {
			return "", err
		}
		return res.Text, nil
	}
}

func contentTypeOf(src Source) string {
	ct := strings.ToLower(strings.TrimSpace(src.ContentType))
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	detected := mimetype.Detect(src.Data)
	if i := strings.IndexByte(detected.String(), ';'); i >= 0 {
		return detected.String()[:i]
	}
	return detected.String()
}
