package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"slices"
	"strings"
)

const MaxFileSize = 5 << 20

var AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}

var ErrInvalidImage = errors.New("invalid image file")

// Upload is an image received from a client, fully buffered.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Store persists uploads and returns a path relative to the store root.
type Store interface {
	Save(ctx context.Context, subfolder string, u *Upload) (string, error)
	Delete(ctx context.Context, path string) (bool, error)
	URL(path string) string
}

func FromFileHeader(fh *multipart.FileHeader) (*Upload, error) {
	if fh == nil {
		return nil, fmt.Errorf("%w: no file provided", ErrInvalidImage)
	}
	if fh.Size > MaxFileSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidImage, MaxFileSize)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, err
	}

	return &Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func Validate(u *Upload) error {
	if u == nil || len(u.Data) == 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidImage)
	}
	if len(u.Data) > MaxFileSize {
		return fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidImage, MaxFileSize)
	}
	if !slices.Contains(AllowedExtensions, Extension(u.Filename)) {
		return fmt.Errorf("%w: extension %q is not allowed", ErrInvalidImage, Extension(u.Filename))
	}
	if !strings.HasPrefix(strings.ToLower(u.ContentType), "image/") {
		return fmt.Errorf("%w: content type %q is not an image", ErrInvalidImage, u.ContentType)
	}
	return nil
}

func ToDataURI(u *Upload) (string, error) {
	if err := Validate(u); err != nil {
		return "", err
	}
	return "data:" + u.ContentType + ";base64," + base64.StdEncoding.EncodeToString(u.Data), nil
}

// ValidateDataURI accepts "data:image/<type>;base64,<payload>" with a
// decodable payload no larger than MaxFileSize.
func ValidateDataURI(s string) error {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return fmt.Errorf("%w: not a data URI", ErrInvalidImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return fmt.Errorf("%w: malformed data URI", ErrInvalidImage)
	}
	mime, enc, ok := strings.Cut(meta, ";")
	if !ok || enc != "base64" || !strings.HasPrefix(strings.ToLower(mime), "image/") {
		return fmt.Errorf("%w: expected an image/* base64 data URI", ErrInvalidImage)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxFileSize+3 {
		return fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidImage, MaxFileSize)
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return fmt.Errorf("%w: payload is not base64", ErrInvalidImage)
	}
	return nil
}
