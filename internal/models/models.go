// Package models defines shared data structures for the backend.
package models

// User is the authenticated account a session belongs to.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Record is a schemaless row as exchanged with the remote backend. Rows pass
// through the sync path untouched, so no per-resource struct mapping is done.
type Record = map[string]any

// Page is one page of records plus pagination metadata.
type Page struct {
	Data []Record `json:"data"`
	Meta PageMeta `json:"meta"`
}

// PageMeta describes the position of a page within the full result set.
type PageMeta struct {
	Page    int  `json:"page"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}
