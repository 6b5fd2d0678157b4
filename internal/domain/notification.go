package domain

import "time"

// MagicLinkModel is the set of template variables for the magic-link email.
type MagicLinkModel struct {
	MagicLink string `json:"magic_link"`
	SiteName  string `json:"site_name"`
	UserName  string `json:"user_name"`
}

// TemplateEmail is a templated message handed to a Notifier.
type TemplateEmail struct {
	To          string         `json:"to"`
	TemplateID  int64          `json:"template_id"`
	TemplateKey string         `json:"template_alias"`
	Model       MagicLinkModel `json:"template_model"`
}

// Receipt acknowledges that a Notifier accepted a message for delivery.
type Receipt struct {
	MessageID   string    `json:"message_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}
