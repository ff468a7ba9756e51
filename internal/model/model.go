// Package model defines the reference server's storage records.
package model

import (
	"time"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

// Record is one stored resource row. TrackingNumber is extracted from
// shipment payloads into its own column so the store can enforce the
// uniqueness constraint.
type Record struct {
	ID             string
	Kind           types.Kind
	Status         types.Status
	TrackingNumber string
	Payload        types.Payload
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Envelope converts the record into its wire representation.
func (r Record) Envelope() types.Envelope {
	payload := r.Payload.Clone()
	if payload == nil {
		payload = types.Payload{}
	}
	return types.Envelope{
		Kind:       r.Kind.EnvelopeName(),
		APIVersion: types.APIVersion,
		Metadata: types.ResourceMetadata{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Spec: payload,
	}
}
