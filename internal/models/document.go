package models

// DocumentInfo represents one uploaded scan: a customs declaration page or
// a freight invoice page. The ID is assigned at ingestion and stays stable
// for the lifetime of the document; only the record slot referencing the
// document changes during re-pairing.
type DocumentInfo struct {
	ID                    string  `json:"id" msgpack:"id"`
	FileName              string  `json:"fileName" msgpack:"fileName"`
	PreviewDataURL        *string `json:"previewDataUrl" msgpack:"previewDataUrl"`
	FullResolutionDataURL *string `json:"fullResolutionDataUrl" msgpack:"fullResolutionDataUrl"`
	FileType              string  `json:"fileType" msgpack:"fileType"`
	Rotation              int     `json:"rotation,omitempty" msgpack:"rotation"`
	Width                 int     `json:"width,omitempty" msgpack:"width"`
	Height                int     `json:"height,omitempty" msgpack:"height"`
}

// NormalizeRotation clamps an arbitrary degree value into {0, 90, 180, 270}.
func NormalizeRotation(deg int) int {
	deg = deg % 360
	if deg < 0 {
		deg += 360
	}
	// Snap to the nearest quarter turn; uploads only ever produce these.
	return (deg / 90) * 90
}

// Rotate applies a quarter-turn in the given direction (+90 or -90).
func (d *DocumentInfo) Rotate(deg int) {
	d.Rotation = NormalizeRotation(d.Rotation + deg)
}

// DocumentSlot names one of the two slots of a pair record.
type DocumentSlot string

const (
	SlotDeclaration DocumentSlot = "declaration"
	SlotFreight     DocumentSlot = "freight"
)

// Valid reports whether the slot name is one of the two known slots.
func (s DocumentSlot) Valid() bool {
	return s == SlotDeclaration || s == SlotFreight
}
