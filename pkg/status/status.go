// Package status defines the per-kind status sets and the cyclic
// quick-action transition used by the admin dashboard.
package status

import (
	"fmt"
	"sync"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

// builtinTables holds the fixed ordered status list per kind. The order is
// the cycle order of the admin "advance" quick action.
var builtinTables = map[types.Kind][]types.Status{
	types.KindAppointment: {
		types.AppointmentPending,
		types.AppointmentConfirmed,
		types.AppointmentRescheduled,
		types.AppointmentCompleted,
		types.AppointmentCancelled,
	},
	types.KindDonation: {
		types.DonationPending,
		types.DonationCompleted,
		types.DonationCancelled,
	},
	types.KindEvent: {
		types.EventUpcoming,
		types.EventCompleted,
		types.EventCancelled,
	},
	types.KindBlogPost: {
		types.BlogPostDraft,
		types.BlogPostPublished,
		types.BlogPostArchived,
	},
	types.KindPrayerRequest: {
		types.PrayerRequestPending,
		types.PrayerRequestAnswered,
		types.PrayerRequestArchived,
	},
	types.KindNewsletter: {
		types.NewsletterDraft,
		types.NewsletterSent,
	},
	types.KindSubscriber: {
		types.SubscriberSubscribed,
		types.SubscriberUnsubscribed,
	},
	types.KindShipment: {
		types.ShipmentPending,
		types.ShipmentProcessing,
		types.ShipmentInTransit,
		types.ShipmentDelivered,
		types.ShipmentCancelled,
	},
}

// Machine resolves status tables and computes the cyclic next status.
// Shipment statuses are backend-defined: Register replaces the seed table
// with the ordering the backend publishes.
type Machine struct {
	mu         sync.RWMutex
	registered map[types.Kind][]types.Status
}

// NewMachine returns a machine with the built-in tables.
func NewMachine() *Machine {
	return &Machine{registered: make(map[types.Kind][]types.Status)}
}

// Register installs a backend-defined status ordering for a kind,
// replacing the built-in table for subsequent lookups.
func (m *Machine) Register(kind types.Kind, statuses []types.Status) error {
	if len(statuses) == 0 {
		return fmt.Errorf("status table for kind %q must not be empty", kind)
	}
	table := make([]types.Status, len(statuses))
	copy(table, statuses)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered[kind] = table
	return nil
}

// Statuses returns the ordered status table for a kind, or nil when the
// kind has no status machine (user resources have none).
func (m *Machine) Statuses(kind types.Kind) []types.Status {
	table := m.table(kind)
	if table == nil {
		return nil
	}
	out := make([]types.Status, len(table))
	copy(out, table)
	return out
}

// Contains reports whether candidate is a member of the kind's status set.
func (m *Machine) Contains(kind types.Kind, candidate types.Status) bool {
	for _, status := range m.table(kind) {
		if status == candidate {
			return true
		}
	}
	return false
}

// Next returns the status immediately following current in the kind's
// ordered table, wrapping to the first status after the last. An
// unrecognized current status is treated as if it were the first entry, so
// Next always returns a valid member of the status set.
func (m *Machine) Next(kind types.Kind, current types.Status) (types.Status, error) {
	table := m.table(kind)
	if len(table) == 0 {
		return "", fmt.Errorf("kind %q has no status table", kind)
	}

	for i, candidate := range table {
		if candidate == current {
			return table[(i+1)%len(table)], nil
		}
	}
	return table[1%len(table)], nil
}

// First returns the initial status for a kind: the first table entry.
func (m *Machine) First(kind types.Kind) (types.Status, error) {
	table := m.table(kind)
	if len(table) == 0 {
		return "", fmt.Errorf("kind %q has no status table", kind)
	}
	return table[0], nil
}

func (m *Machine) table(kind types.Kind) []types.Status {
	m.mu.RLock()
	table, ok := m.registered[kind]
	m.mu.RUnlock()
	if ok {
		return table
	}
	return builtinTables[kind]
}
