package types

import "time"

// AppointmentSpec is the kind-specific payload for an appointment.
type AppointmentSpec struct {
	Title       string     `json:"title"`
	RequestedBy string     `json:"requestedBy,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	Location    string     `json:"location,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Status      Status     `json:"status,omitempty"`
}

// DonationSpec is the kind-specific payload for a donation.
type DonationSpec struct {
	DonorName   string `json:"donorName"`
	DonorEmail  string `json:"donorEmail,omitempty"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
	Status      Status `json:"status,omitempty"`
}

// EventSpec is the kind-specific payload for a calendar event.
type EventSpec struct {
	Title    string     `json:"title"`
	StartsAt *time.Time `json:"startsAt,omitempty"`
	EndsAt   *time.Time `json:"endsAt,omitempty"`
	Venue    string     `json:"venue,omitempty"`
	Summary  string     `json:"summary,omitempty"`
	Status   Status     `json:"status,omitempty"`
}

// BlogPostSpec is the kind-specific payload for a blog article.
type BlogPostSpec struct {
	Title    string `json:"title"`
	Slug     string `json:"slug,omitempty"`
	Body     string `json:"body,omitempty"`
	Author   string `json:"author,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
	Status   Status `json:"status,omitempty"`
}

// PrayerRequestSpec is the kind-specific payload for a prayer request.
type PrayerRequestSpec struct {
	RequesterName string `json:"requesterName"`
	Category      string `json:"category,omitempty"`
	Message       string `json:"message,omitempty"`
	Private       bool   `json:"private,omitempty"`
	Status        Status `json:"status,omitempty"`
}

// NewsletterSpec is the kind-specific payload for a newsletter issue.
type NewsletterSpec struct {
	Subject string `json:"subject"`
	Body    string `json:"body,omitempty"`
	Status  Status `json:"status,omitempty"`
}

// SubscriberSpec is the kind-specific payload for a newsletter subscriber.
// IsSubscribed is the wire field; the status machine projects it onto the
// subscribed/unsubscribed pair.
type SubscriberSpec struct {
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	IsSubscribed bool   `json:"isSubscribed"`
}

// ShipmentSpec is the kind-specific payload for a cargo shipment.
type ShipmentSpec struct {
	TrackingNumber string  `json:"trackingNumber"`
	SenderName     string  `json:"senderName,omitempty"`
	ReceiverName   string  `json:"receiverName,omitempty"`
	Origin         string  `json:"origin,omitempty"`
	Destination    string  `json:"destination,omitempty"`
	WeightKG       float64 `json:"weightKg,omitempty"`
	Status         Status  `json:"status,omitempty"`
}

// UserSpec is the kind-specific payload for a platform user account.
type UserSpec struct {
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Role     string `json:"role,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}
