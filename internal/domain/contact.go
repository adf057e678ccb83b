package domain

// ContactSubmission is a visitor's contact form payload. It is forwarded and
// then discarded.
type ContactSubmission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Email is the provider-agnostic outbound message built from a submission.
type Email struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	HTML    string
}
