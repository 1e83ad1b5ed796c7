package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	unsafeChars    = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	unsafeExtChars = regexp.MustCompile(`[^a-zA-Z0-9]`)
	spaceRuns      = regexp.MustCompile(`\s+`)
)

// File is a receipt image selected by the user
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewFile builds a File, detecting the content type from the data when the
// caller does not know it
func NewFile(name, contentType string, data []byte) *File {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	return &File{
		Name:        name,
		ContentType: contentType,
		Data:        data,
	}
}

// OpenFile reads a receipt image from disk
func OpenFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return NewFile(filepath.Base(path), "", data), nil
}

// IsImage reports whether the file looks like an image.
// It is advisory only, the parsing service decides what it accepts.
func (f *File) IsImage() bool {
	mediaType := strings.SplitN(f.ContentType, ";", 2)[0]
	return strings.HasPrefix(strings.TrimSpace(mediaType), "image/")
}

// UploadName is the filename sent in the multipart part
func (f *File) UploadName() string {
	return sanitizeFilename(f.Name)
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	if ext != "" {
		ext = "." + unsafeExtChars.ReplaceAllString(ext[1:], "")
		if ext == "." {
			ext = ""
		}
	}

	base = unsafeChars.ReplaceAllString(base, "")
	base = spaceRuns.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Phones produce very long names
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + strings.ToLower(ext)
}
