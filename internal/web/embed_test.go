package web

import "testing"

func TestHasEmbeddedFiles(t *testing.T) {
	// Only the placeholder page is committed; without a built bundle the
	// server must stay in development mode so the dev CORS rules apply.
	if HasEmbeddedFiles() {
		t.Error("Expected no embedded bundle with only the placeholder page")
	}
}

func TestGetFileSystem(t *testing.T) {
	fsys, err := GetFileSystem()
	if err != nil {
		t.Fatalf("GetFileSystem failed: %v", err)
	}
	f, err := fsys.Open("index.html")
	if err != nil {
		t.Fatalf("Expected index.html in embedded filesystem: %v", err)
	}
	f.Close()
}
