package types

import "time"

// APIVersion identifies the wire format version of the admin API.
const APIVersion = "cargo/v1"

// Envelope is the standard wrapper for a single API resource.
type Envelope struct {
	Kind       string           `json:"kind"`
	APIVersion string           `json:"apiVersion"`
	Metadata   ResourceMetadata `json:"metadata"`
	Spec       Payload          `json:"spec"`
}

// ResourceMetadata carries identity and audit fields common to all resources.
type ResourceMetadata struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EnvelopeList is the standard wrapper for a collection of API resources.
type EnvelopeList struct {
	Kind       string       `json:"kind"`
	APIVersion string       `json:"apiVersion"`
	Metadata   ListMetadata `json:"metadata"`
	Items      []Envelope   `json:"items"`
}

// ListMetadata carries pagination information for list responses.
type ListMetadata struct {
	TotalCount int `json:"totalCount"`
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
}

// ProblemDetail is an RFC 9457 Problem Details error response. The Detail
// field carries the human-readable message surfaced to the admin view.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// StatusListResponse is the payload of GET /shipments/statuses: the
// backend-defined shipment status ordering.
type StatusListResponse struct {
	Kind       string   `json:"kind"`
	APIVersion string   `json:"apiVersion"`
	Statuses   []Status `json:"statuses"`
}

// EnvelopeName returns the wire kind discriminator for single resources
// (e.g. "Appointment"). Lists append the "List" suffix.
func (k Kind) EnvelopeName() string {
	switch k {
	case KindAppointment:
		return "Appointment"
	case KindDonation:
		return "Donation"
	case KindEvent:
		return "Event"
	case KindBlogPost:
		return "BlogPost"
	case KindPrayerRequest:
		return "PrayerRequest"
	case KindNewsletter:
		return "Newsletter"
	case KindSubscriber:
		return "Subscriber"
	case KindShipment:
		return "Shipment"
	case KindUser:
		return "User"
	default:
		return string(k)
	}
}

// FromEnvelope converts a wire envelope into the generic client-side view.
// The status is read from the spec's status field; subscribers project the
// boolean isSubscribed field onto the subscribed/unsubscribed pair.
func FromEnvelope(kind Kind, env Envelope) Resource {
	payload := env.Spec.Clone()
	return Resource{
		ID:      env.Metadata.ID,
		Kind:    kind,
		Status:  StatusFromPayload(kind, payload),
		Payload: payload,
		Audit: Audit{
			CreatedAt: env.Metadata.CreatedAt,
			UpdatedAt: env.Metadata.UpdatedAt,
		},
	}
}

// StatusFromPayload extracts the resource status from a kind-specific
// payload.
func StatusFromPayload(kind Kind, payload Payload) Status {
	if kind == KindSubscriber {
		if subscribed, ok := payload["isSubscribed"].(bool); ok && !subscribed {
			return SubscriberUnsubscribed
		}
		return SubscriberSubscribed
	}
	if raw, ok := payload["status"].(string); ok {
		return Status(raw)
	}
	return ""
}
