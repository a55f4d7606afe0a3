// Package ingest turns uploaded files into DocumentInfo values: id
// assignment, MIME detection, data-URL payloads and image dimension
// probing. Ingestion never inspects document content beyond the image
// header; pairing works purely on filenames.
package ingest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/customs-pairing/backend/internal/models"
)

// MaxFileSize caps a single scan; above this the file is rejected
// per-file without aborting the rest of the batch.
const MaxFileSize = 50 << 20

// FileError reports one failed file of a batch.
type FileError struct {
	FileName string `json:"fileName"`
	Reason   string `json:"reason"`
}

// Result is the outcome of ingesting one batch: the documents that made
// it, plus per-file errors for the ones that did not.
type Result struct {
	Documents []*models.DocumentInfo `json:"documents"`
	Errors    []FileError            `json:"errors,omitempty"`
}

// Ingestor builds DocumentInfo values from raw uploads.
type Ingestor struct {
	maxSize int64
}

// New returns an ingestor with the default size cap.
func New() *Ingestor {
	return &Ingestor{maxSize: MaxFileSize}
}

// File is one raw upload: the original filename, the declared content
// type (may be empty) and the payload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Batch ingests a whole upload. Failures are reported per file; a bad
// scan never blocks its siblings.
func (ing *Ingestor) Batch(files []File) *Result {
	res := &Result{}
	for _, f := range files {
		doc, err := ing.Document(f)
		if err != nil {
			fmt.Printf("[Ingest] %s: %v\n", f.Name, err)
			res.Errors = append(res.Errors, FileError{FileName: f.Name, Reason: err.Error()})
			continue
		}
		res.Documents = append(res.Documents, doc)
	}
	return res
}

// Document ingests a single file.
func (ing *Ingestor) Document(f File) (*models.DocumentInfo, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("missing filename")
	}
	if len(f.Data) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	if int64(len(f.Data)) > ing.maxSize {
		return nil, fmt.Errorf("file exceeds %d MB limit", ing.maxSize>>20)
	}

	contentType := detectType(f)
	doc := &models.DocumentInfo{
		ID:       uuid.New().String(),
		FileName: f.Name,
		FileType: contentType,
	}

	// Images and PDFs render in the viewer; anything else keeps nil
	// payload references and shows as a placeholder.
	if isImage(contentType) || contentType == "application/pdf" {
		url := dataURL(contentType, f.Data)
		doc.FullResolutionDataURL = &url
		doc.PreviewDataURL = &url
	}

	if isImage(contentType) {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data)); err == nil {
			doc.Width = cfg.Width
			doc.Height = cfg.Height
		}
	}

	return doc, nil
}

// detectType prefers the declared content type, falls back to the
// filename extension, then to content sniffing.
func detectType(f File) string {
	if f.ContentType != "" && f.ContentType != "application/octet-stream" {
		return f.ContentType
	}
	if byExt := mime.TypeByExtension(filepath.Ext(f.Name)); byExt != "" {
		// Strip parameters like "; charset=utf-8".
		if i := strings.Index(byExt, ";"); i >= 0 {
			byExt = byExt[:i]
		}
		return byExt
	}
	return http.DetectContentType(f.Data)
}

func isImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

func dataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
