package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrUploadTooLarge = errors.New("upload exceeds maximum size")
	ErrMissingUpload  = errors.New("upload missing")
)

// multipartOverhead covers boundaries and headers around the file part.
const multipartOverhead = 1 << 20

// Upload is a single file read from a multipart form.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ReadUpload reads the file in form field from a multipart request whose
// file part may be at most maxSize bytes. A missing or
// application/octet-stream content type is sniffed from the data.
func ReadUpload(w http.ResponseWriter, r *http.Request, field string, maxSize int64) (*Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, ErrUploadTooLarge
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingUpload, err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q", ErrMissingUpload, field)
	}
	defer file.Close()

	if header.Size > maxSize {
		return nil, ErrUploadTooLarge
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	return &Upload{
		Data:        data,
		Filename:    header.Filename,
		ContentType: detectContentType(header.Header.Get("Content-Type"), data),
	}, nil
}

func detectContentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}
