package api

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/customs-pairing/backend/internal/ingest"
)

// HandleUploadDocuments accepts a multipart batch of scans, runs the
// pairing algorithm over them and returns the created records alongside
// per-file ingest errors. A bad file never blocks its siblings.
func (h *Handler) HandleUploadDocuments(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}
	files := form.File["files"]
	if len(files) == 0 {
		return NewBadRequestError("files is required", nil)
	}

	batch := make([]ingest.File, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			return NewInternalError("failed to open upload", err)
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return NewInternalError("failed to read upload", err)
		}
		batch = append(batch, ingest.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	return h.ingestAndPair(c, batch)
}

// HandleUploadDocumentsBase64 accepts the same batch as base64 JSON, for
// clients that cannot build multipart bodies.
func (h *Handler) HandleUploadDocumentsBase64(c echo.Context) error {
	var req struct {
		Files []struct {
			Name        string `json:"name"`
			ContentType string `json:"contentType"`
			Data        string `json:"data"` // Base64-encoded file content
		} `json:"files"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if len(req.Files) == 0 {
		return NewBadRequestError("files is required", nil)
	}

	batch := make([]ingest.File, 0, len(req.Files))
	for _, f := range req.Files {
		decoded, err := base64.StdEncoding.DecodeString(f.Data)
		if err != nil {
			return NewBadRequestError(fmt.Sprintf("invalid base64 data for %s", f.Name), err)
		}
		batch = append(batch, ingest.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Data:        decoded,
		})
	}

	return h.ingestAndPair(c, batch)
}

func (h *Handler) ingestAndPair(c echo.Context, batch []ingest.File) error {
	result := h.ingestor.Batch(batch)
	records, err := h.history.CreateFromUpload(c.Request().Context(), result.Documents)
	if err != nil {
		return NewInternalError("failed to save records", err)
	}

	fmt.Printf("[API] Upload: %d files, %d records, %d errors\n",
		len(batch), len(records), len(result.Errors))

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"records": records,
		"errors":  result.Errors,
	})
}
