package models

// Group is a directory group as reported by a backend. Groups are not
// persisted by this core; directory-backed backends return them as values.
type Group struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
