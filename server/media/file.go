package media

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// CanonicalType is the media type every stored photo is converted to.
const CanonicalType = "image/jpeg"

// File is a user-selected image as the picker hands it over.
type File struct {
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string
	Data        []byte
}

// FileFromPath reads a file from disk, sniffing its media type.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, errors.Wrapf(err, "failed to stat %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.Wrapf(err, "failed to read %s", path)
	}
	return File{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

// Identify returns the cheap identity key of a file: name, size and
// modification time. Two different files with equal metadata collide.
func Identify(f File) string {
	return fmt.Sprintf("%s-%d-%d", f.Name, f.Size, f.ModTime.UnixMilli())
}

// MediaType returns the declared media type, sniffing the bytes when none is declared.
func MediaType(f File) string {
	declared := strings.ToLower(strings.TrimSpace(f.ContentType))
	if declared != "" && declared != "application/octet-stream" {
		if parsed, _, err := mime.ParseMediaType(declared); err == nil {
			return parsed
		}
		return declared
	}
	if len(f.Data) == 0 {
		return declared
	}
	detected, _, _ := mime.ParseMediaType(mimetype.Detect(f.Data).String())
	return detected
}

// IsImage reports whether a media type is an image type.
func IsImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

// IsCanonical reports whether a media type needs no format conversion.
func IsCanonical(contentType string) bool {
	return contentType == CanonicalType || contentType == "image/jpg"
}
