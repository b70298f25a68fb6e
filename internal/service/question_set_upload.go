package service

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// Sentinel errors for question-set file uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// MaxUploadBytes caps an uploaded question-set file.
const MaxUploadBytes int64 = 512 << 10

// Content types browsers send for .json files.
var allowedUploadTypes = map[string]bool{
	"application/json":         true,
	"text/json":                true,
	"text/plain":               true,
	"application/octet-stream": true,
}

// ValidateUpload checks an uploaded file's type and size, then runs its
// contents through Validate.
func (s *QuestionSetService) ValidateUpload(file multipart.File, header *multipart.FileHeader) (*model.QuestionSet, error) {
	if !strings.EqualFold(filepath.Ext(header.Filename), ".json") {
		return nil, fmt.Errorf("%w: %s (allowed: .json)", ErrUnsupportedFileType, header.Filename)
	}
	if ct := header.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !allowedUploadTypes[mediaType] {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, ct)
		}
	}
	if header.Size > MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, MaxUploadBytes)
	}

	// Size on the header is client-supplied; read one byte past the cap to catch liars.
	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, MaxUploadBytes)
	}

	s.log.Debug().Str("filename", header.Filename).Int("bytes", len(data)).Msg("question set uploaded")
	return s.Validate(data)
}
