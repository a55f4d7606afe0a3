package models

import "time"

// RecordStatus marks whether a record was created successfully. ERROR only
// appears on legacy or failed entries; the pairing flow always produces
// SUCCESS records.
type RecordStatus string

const (
	RecordSuccess RecordStatus = "SUCCESS"
	RecordError   RecordStatus = "ERROR"
)

// PairRecord is one history entry: up to two document slots, the pairing
// tri-state, the data-verification flag and the manually transcribed
// field map.
type PairRecord struct {
	ID          string            `json:"id" msgpack:"id"`
	AnalyzedAt  time.Time         `json:"analyzedAt" msgpack:"analyzedAt"`
	Declaration *DocumentInfo     `json:"declaration,omitempty" msgpack:"declaration"`
	Freight     *DocumentInfo     `json:"freight,omitempty" msgpack:"freight"`
	Status      RecordStatus      `json:"status" msgpack:"status"`
	Data        map[string]string `json:"data" msgpack:"data"`
	Error       string            `json:"error,omitempty" msgpack:"error"`
	Verified    bool              `json:"verified" msgpack:"verified"`

	// PairingVerified serializes as null / false / true for compatibility
	// with the frontend and previously exported data.
	PairingVerified PairingStatus `json:"pairingVerified" msgpack:"pairingVerified"`
}

// DocumentCount returns how many slots are occupied (0, 1 or 2).
func (r *PairRecord) DocumentCount() int {
	n := 0
	if r.Declaration != nil {
		n++
	}
	if r.Freight != nil {
		n++
	}
	return n
}

// IsPendingPair reports whether the record belongs to the unverified
// queue: both slots filled and pairing not yet confirmed.
func (r *PairRecord) IsPendingPair() bool {
	return r.PairingVerified == PairingPending && r.Declaration != nil && r.Freight != nil
}

// IsSingleton reports whether the record holds exactly one document and
// awaits manual or automatic pairing.
func (r *PairRecord) IsSingleton() bool {
	return r.PairingVerified == PairingUnpaired && r.DocumentCount() == 1
}

// SortName is the filename used for display and queue ordering: the
// declaration name, falling back to the freight name.
func (r *PairRecord) SortName() string {
	if r.Declaration != nil {
		return r.Declaration.FileName
	}
	if r.Freight != nil {
		return r.Freight.FileName
	}
	return ""
}

// Documents lists the occupied slots in declaration-then-freight order.
func (r *PairRecord) Documents() []*DocumentInfo {
	docs := make([]*DocumentInfo, 0, 2)
	if r.Declaration != nil {
		docs = append(docs, r.Declaration)
	}
	if r.Freight != nil {
		docs = append(docs, r.Freight)
	}
	return docs
}

// Document returns the document in the named slot, or nil.
func (r *PairRecord) Document(slot DocumentSlot) *DocumentInfo {
	switch slot {
	case SlotDeclaration:
		return r.Declaration
	case SlotFreight:
		return r.Freight
	}
	return nil
}

// StatusConsistent checks the tri-state invariant: PairingUnpaired exactly
// when fewer than two slots are filled.
func (r *PairRecord) StatusConsistent() bool {
	if r.PairingVerified == PairingUnpaired {
		return r.DocumentCount() < 2
	}
	return r.DocumentCount() == 2
}

// Clone returns a deep copy so mirror snapshots cannot alias store state.
func (r *PairRecord) Clone() *PairRecord {
	cp := *r
	if r.Declaration != nil {
		d := *r.Declaration
		cp.Declaration = &d
	}
	if r.Freight != nil {
		f := *r.Freight
		cp.Freight = &f
	}
	if r.Data != nil {
		cp.Data = make(map[string]string, len(r.Data))
		for k, v := range r.Data {
			cp.Data[k] = v
		}
	}
	return &cp
}
