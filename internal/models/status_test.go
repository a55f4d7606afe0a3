package models

import (
	"encoding/json"
	"testing"
)

func TestPairingStatusJSON(t *testing.T) {
	tests := []struct {
		status PairingStatus
		want   string
	}{
		{PairingUnpaired, "null"},
		{PairingPending, "false"},
		{PairingVerified, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			data, err := json.Marshal(tt.status)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, data)
			}

			var back PairingStatus
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if back != tt.status {
				t.Errorf("Round trip: expected %v, got %v", tt.status, back)
			}
		})
	}

	t.Run("rejects non-boolean values", func(t *testing.T) {
		var s PairingStatus
		if err := json.Unmarshal([]byte(`"verified"`), &s); err == nil {
			t.Error("Expected error for string value")
		}
		if err := json.Unmarshal([]byte(`1`), &s); err == nil {
			t.Error("Expected error for numeric value")
		}
	})

	t.Run("absent field decodes to unpaired", func(t *testing.T) {
		var r PairRecord
		if err := json.Unmarshal([]byte(`{"id":"x"}`), &r); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if r.PairingVerified != PairingUnpaired {
			t.Errorf("Expected unpaired, got %v", r.PairingVerified)
		}
	})
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 0},
		{90, 90},
		{360, 0},
		{450, 90},
		{-90, 270},
		{-360, 0},
	}
	for _, tt := range tests {
		if got := NormalizeRotation(tt.in); got != tt.want {
			t.Errorf("NormalizeRotation(%d): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestDocumentRotate(t *testing.T) {
	d := &DocumentInfo{Rotation: 270}
	d.Rotate(90)
	if d.Rotation != 0 {
		t.Errorf("Expected rotation to wrap to 0, got %d", d.Rotation)
	}
	d.Rotate(-90)
	if d.Rotation != 270 {
		t.Errorf("Expected rotation 270, got %d", d.Rotation)
	}
}

func TestRecordStatusConsistent(t *testing.T) {
	decl := &DocumentInfo{ID: "d1", FileName: "a.png"}
	freight := &DocumentInfo{ID: "d2", FileName: "b.png"}

	tests := []struct {
		name   string
		record PairRecord
		want   bool
	}{
		{"unpaired singleton", PairRecord{Declaration: decl, PairingVerified: PairingUnpaired}, true},
		{"pending pair", PairRecord{Declaration: decl, Freight: freight, PairingVerified: PairingPending}, true},
		{"verified pair", PairRecord{Declaration: decl, Freight: freight, PairingVerified: PairingVerified}, true},
		{"unpaired with two documents", PairRecord{Declaration: decl, Freight: freight, PairingVerified: PairingUnpaired}, false},
		{"pending singleton", PairRecord{Declaration: decl, PairingVerified: PairingPending}, false},
		{"verified singleton", PairRecord{Freight: freight, PairingVerified: PairingVerified}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.StatusConsistent(); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRecordClone(t *testing.T) {
	r := &PairRecord{
		ID:          "r1",
		Declaration: &DocumentInfo{ID: "d1", FileName: "a.png"},
		Data:        map[string]string{"Alıcı": "ACME"},
	}
	cp := r.Clone()

	cp.Declaration.FileName = "changed.png"
	cp.Data["Alıcı"] = "changed"

	if r.Declaration.FileName != "a.png" {
		t.Error("Clone aliases the declaration document")
	}
	if r.Data["Alıcı"] != "ACME" {
		t.Error("Clone aliases the data map")
	}
}

func TestRecordSortName(t *testing.T) {
	decl := &DocumentInfo{FileName: "decl.png"}
	freight := &DocumentInfo{FileName: "freight.png"}

	if got := (&PairRecord{Declaration: decl, Freight: freight}).SortName(); got != "decl.png" {
		t.Errorf("Expected declaration name, got %s", got)
	}
	if got := (&PairRecord{Freight: freight}).SortName(); got != "freight.png" {
		t.Errorf("Expected freight fallback, got %s", got)
	}
	if got := (&PairRecord{}).SortName(); got != "" {
		t.Errorf("Expected empty name, got %s", got)
	}
}
