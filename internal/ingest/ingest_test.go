package ingest

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestDocument(t *testing.T) {
	ing := New()

	t.Run("png upload probes dimensions", func(t *testing.T) {
		doc, err := ing.Document(File{Name: "scan.png", Data: pngBytes(t, 640, 480)})
		if err != nil {
			t.Fatalf("Document failed: %v", err)
		}
		if doc.ID == "" {
			t.Error("Expected generated id")
		}
		if doc.FileType != "image/png" {
			t.Errorf("Expected image/png, got %s", doc.FileType)
		}
		if doc.Width != 640 || doc.Height != 480 {
			t.Errorf("Expected 640x480, got %dx%d", doc.Width, doc.Height)
		}
		if doc.FullResolutionDataURL == nil || !strings.HasPrefix(*doc.FullResolutionDataURL, "data:image/png;base64,") {
			t.Error("Expected base64 data URL payload")
		}
	})

	t.Run("pdf gets a payload but no dimensions", func(t *testing.T) {
		doc, err := ing.Document(File{Name: "scan.pdf", Data: []byte("%PDF-1.4 fake")})
		if err != nil {
			t.Fatalf("Document failed: %v", err)
		}
		if doc.FileType != "application/pdf" {
			t.Errorf("Expected application/pdf, got %s", doc.FileType)
		}
		if doc.FullResolutionDataURL == nil {
			t.Error("Expected data URL payload for PDF")
		}
		if doc.Width != 0 || doc.Height != 0 {
			t.Errorf("Expected no dimensions, got %dx%d", doc.Width, doc.Height)
		}
	})

	t.Run("unknown type keeps nil payloads", func(t *testing.T) {
		doc, err := ing.Document(File{Name: "notes.xyzzy", ContentType: "application/x-unknown", Data: []byte("data")})
		if err != nil {
			t.Fatalf("Document failed: %v", err)
		}
		if doc.PreviewDataURL != nil || doc.FullResolutionDataURL != nil {
			t.Error("Expected nil payloads for unrenderable type")
		}
	})

	t.Run("declared content type wins over extension", func(t *testing.T) {
		doc, err := ing.Document(File{Name: "scan.bin", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}})
		if err != nil {
			t.Fatalf("Document failed: %v", err)
		}
		if doc.FileType != "image/jpeg" {
			t.Errorf("Expected image/jpeg, got %s", doc.FileType)
		}
	})

	t.Run("rejects empty file", func(t *testing.T) {
		if _, err := ing.Document(File{Name: "empty.png"}); err == nil {
			t.Error("Expected error for empty file")
		}
	})

	t.Run("rejects missing filename", func(t *testing.T) {
		if _, err := ing.Document(File{Data: []byte("x")}); err == nil {
			t.Error("Expected error for missing filename")
		}
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		ing := &Ingestor{maxSize: 4}
		if _, err := ing.Document(File{Name: "big.png", Data: []byte("12345")}); err == nil {
			t.Error("Expected error for oversized file")
		}
	})
}

func TestBatch(t *testing.T) {
	ing := New()

	res := ing.Batch([]File{
		{Name: "good.png", Data: pngBytes(t, 10, 10)},
		{Name: "bad.png"}, // empty, fails per-file
		{Name: "also_good.pdf", Data: []byte("%PDF-1.4")},
	})

	if len(res.Documents) != 2 {
		t.Errorf("Expected 2 documents, got %d", len(res.Documents))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(res.Errors))
	}
	if res.Errors[0].FileName != "bad.png" {
		t.Errorf("Expected error for bad.png, got %s", res.Errors[0].FileName)
	}

	t.Run("distinct ids per document", func(t *testing.T) {
		if res.Documents[0].ID == res.Documents[1].ID {
			t.Error("Expected unique document ids")
		}
	})
}
