package models

import (
	"bytes"
	"fmt"
)

// PairingStatus is the pairing-confirmation state of a record.
//
// The original browser app stored this as `boolean | undefined`; the JSON
// wire format keeps that shape (null / false / true) but the in-memory
// representation is a closed enum so an unpaired record with a "confirmed"
// flag cannot be expressed.
type PairingStatus int

const (
	// PairingUnpaired: the record holds a single document and is not a
	// candidate for the verification queue.
	PairingUnpaired PairingStatus = iota
	// PairingPending: two documents whose pairing has not been confirmed.
	PairingPending
	// PairingVerified: two documents confirmed to belong together, either
	// by the user in the review queue or by an explicit manual pairing.
	PairingVerified
)

func (s PairingStatus) String() string {
	switch s {
	case PairingUnpaired:
		return "unpaired"
	case PairingPending:
		return "pending"
	case PairingVerified:
		return "verified"
	}
	return fmt.Sprintf("PairingStatus(%d)", int(s))
}

var (
	jsonNull  = []byte("null")
	jsonFalse = []byte("false")
	jsonTrue  = []byte("true")
)

// MarshalJSON encodes the tri-state as null / false / true.
func (s PairingStatus) MarshalJSON() ([]byte, error) {
	switch s {
	case PairingPending:
		return jsonFalse, nil
	case PairingVerified:
		return jsonTrue, nil
	default:
		return jsonNull, nil
	}
}

// UnmarshalJSON accepts null / false / true. An absent field decodes to
// PairingUnpaired via the zero value.
func (s *PairingStatus) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, jsonNull):
		*s = PairingUnpaired
	case bytes.Equal(data, jsonFalse):
		*s = PairingPending
	case bytes.Equal(data, jsonTrue):
		*s = PairingVerified
	default:
		return fmt.Errorf("invalid pairing status: %s", data)
	}
	return nil
}
