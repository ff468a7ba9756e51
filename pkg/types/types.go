// Package types defines public request/response payloads for the cargo-realm admin API.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind identifies one manageable resource collection.
type Kind string

const (
	// KindAppointment is a devotional or logistics appointment.
	KindAppointment Kind = "appointment"
	// KindDonation is a donation record.
	KindDonation Kind = "donation"
	// KindEvent is a public calendar event.
	KindEvent Kind = "event"
	// KindBlogPost is a blog article.
	KindBlogPost Kind = "blogPost"
	// KindPrayerRequest is a submitted prayer request.
	KindPrayerRequest Kind = "prayerRequest"
	// KindNewsletter is a composed newsletter issue.
	KindNewsletter Kind = "newsletter"
	// KindSubscriber is a newsletter subscriber.
	KindSubscriber Kind = "subscriber"
	// KindShipment is a cargo shipment.
	KindShipment Kind = "shipment"
	// KindUser is a platform user account.
	KindUser Kind = "user"
)

// Kinds lists every resource kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindAppointment,
		KindDonation,
		KindEvent,
		KindBlogPost,
		KindPrayerRequest,
		KindNewsletter,
		KindSubscriber,
		KindShipment,
		KindUser,
	}
}

// ParseKind normalizes and validates a resource kind string.
func ParseKind(value string) (Kind, error) {
	normalized := strings.TrimSpace(value)
	for _, kind := range Kinds() {
		if strings.EqualFold(normalized, string(kind)) {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown resource kind %q", value)
}

// Collection returns the URL path segment for a kind's collection.
func (k Kind) Collection() string {
	switch k {
	case KindAppointment:
		return "appointments"
	case KindDonation:
		return "donations"
	case KindEvent:
		return "events"
	case KindBlogPost:
		return "blog-posts"
	case KindPrayerRequest:
		return "prayer-requests"
	case KindNewsletter:
		return "newsletters"
	case KindSubscriber:
		return "subscribers"
	case KindShipment:
		return "shipments"
	case KindUser:
		return "users"
	default:
		return string(k)
	}
}

// Status is a member of a kind's status set.
type Status string

// Appointment statuses.
const (
	AppointmentPending     Status = "pending"
	AppointmentConfirmed   Status = "confirmed"
	AppointmentRescheduled Status = "rescheduled"
	AppointmentCompleted   Status = "completed"
	AppointmentCancelled   Status = "cancelled"
)

// Donation statuses.
const (
	DonationPending   Status = "pending"
	DonationCompleted Status = "completed"
	DonationCancelled Status = "cancelled"
)

// Event statuses.
const (
	EventUpcoming  Status = "upcoming"
	EventCompleted Status = "completed"
	EventCancelled Status = "cancelled"
)

// Blog post statuses.
const (
	BlogPostDraft     Status = "draft"
	BlogPostPublished Status = "published"
	BlogPostArchived  Status = "archived"
)

// Prayer request statuses.
const (
	PrayerRequestPending  Status = "pending"
	PrayerRequestAnswered Status = "answered"
	PrayerRequestArchived Status = "archived"
)

// Newsletter statuses.
const (
	NewsletterDraft Status = "draft"
	NewsletterSent  Status = "sent"
)

// Subscriber statuses. The subscriber machine is the degenerate two-state
// projection of the boolean isSubscribed field.
const (
	SubscriberSubscribed   Status = "subscribed"
	SubscriberUnsubscribed Status = "unsubscribed"
)

// Shipment statuses are backend-defined. These are the seed values used
// until the backend publishes its own ordering.
const (
	ShipmentPending    Status = "pending"
	ShipmentProcessing Status = "processing"
	ShipmentInTransit  Status = "in-transit"
	ShipmentDelivered  Status = "delivered"
	ShipmentCancelled  Status = "cancelled"
)

// Payload is the kind-specific field set of a resource.
type Payload map[string]any

// Clone returns a deep copy of the payload.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	cloned, _ := deepCopyValue(p).(map[string]any)
	return cloned
}

// Audit carries server-maintained audit timestamps.
type Audit struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Resource is the generic client-side view of one remote resource.
// ID is immutable once assigned by the remote store; Status is always a
// member of the status set defined for Kind.
type Resource struct {
	ID      string  `json:"id"`
	Kind    Kind    `json:"kind"`
	Status  Status  `json:"status"`
	Payload Payload `json:"payload,omitempty"`
	Audit   Audit   `json:"audit"`
}

// Clone returns a deep copy, safe to mutate independently.
func (r Resource) Clone() Resource {
	out := r
	out.Payload = r.Payload.Clone()
	return out
}

func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = deepCopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

// DecodePayload converts a generic payload into a typed spec struct.
func DecodePayload[T any](p Payload) (T, error) {
	var out T
	data, err := json.Marshal(p)
	if err != nil {
		return out, fmt.Errorf("encoding payload: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding payload: %w", err)
	}
	return out, nil
}

// EncodePayload converts a typed spec struct into a generic payload.
func EncodePayload(spec any) (Payload, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encoding spec: %w", err)
	}
	var out Payload
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding spec: %w", err)
	}
	return out, nil
}
