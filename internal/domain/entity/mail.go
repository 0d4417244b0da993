package entity

// MailMessage is a rendered email ready for dispatch.
type MailMessage struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`

	// RequestID correlates queued mail with the request that produced it.
	RequestID string `json:"request_id,omitempty"`
}
