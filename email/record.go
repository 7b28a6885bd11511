package email

// Record is the canonical form of one ingested email. It is never modified after Normalize creates it.
type Record struct {
	Subject    string            `json:"subject"`
	Sender     string            `json:"from"`
	Content    string            `json:"content"`
	ReceivedAt int64             `json:"receivedAt"` // unix milliseconds
	Headers    map[string]string `json:"headers"`
}
