package model

// Candidate identifies the person taking the exam. The fields are captured
// before the session starts and passed through to the Result untouched; the
// session engine never interprets them.
type Candidate struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	Contact     string `json:"contact,omitempty"`
}
