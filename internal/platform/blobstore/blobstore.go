// Package blobstore reads uploaded binary parts into memory, enforcing a size
// cap and an allowlist of content types sniffed from the data itself.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrMissingFile        = errors.New("no file part in form")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMalformedForm      = errors.New("malformed multipart form")
)

// ImageTypes are the formats accepted for exam images.
var ImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// Blob is an uploaded file held in memory.
type Blob struct {
	Data        []byte
	ContentType string
}

// Read loads at most limit bytes from r. The client supplied content type is
// ignored; the type is detected from the data.
func Read(r io.Reader, limit int64, allowed map[string]bool) (*Blob, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	contentType := http.DetectContentType(data)
	if !allowed[contentType] {
		return nil, ErrInvalidContentType
	}
	return &Blob{Data: data, ContentType: contentType}, nil
}

// FromForm reads the named file part of a multipart request. An empty part
// counts as missing. Parse failures wrap ErrMalformedForm, except echo HTTP
// errors raised while reading the body, which are returned as is.
func FromForm(c echo.Context, field string, limit int64, allowed map[string]bool) (*Blob, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, ErrMissingFile
	}
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedForm, err)
	}
	if fh.Size == 0 {
		return nil, ErrMissingFile
	}
	if fh.Size > limit {
		return nil, ErrFileTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer src.Close()
	return Read(src, limit, allowed)
}
