package core

import "strings"

// Party is a supplier (expense counterpart) or customer (sale counterpart).
// Name is the unique key within its directory; the contact fields are
// optional.
type Party struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (p Party) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Missing: []string{"party name"}}
	}
	return nil
}

// Normalize trims the name so directory lookups key on the exact trimmed
// spelling.
func (p Party) Normalize() Party {
	p.Name = strings.TrimSpace(p.Name)
	return p
}
