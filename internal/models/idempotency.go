package models

import "time"

// IdempotencyRecord stores the first recorded outcome for a client-supplied
// key. Write-once; retries replay the stored response verbatim.
type IdempotencyRecord struct {
	Key          string    `json:"key"`
	Scope        string    `json:"scope"`
	StatusCode   int       `json:"status_code"`
	ResponseBody string    `json:"response_body"`
	CreatedAt    time.Time `json:"created_at"`
}
