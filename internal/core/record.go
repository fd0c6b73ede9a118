package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	KindExpense Kind = "expenses"
	KindSale    Kind = "sales"
)

// DateLayout is the canonical calendar-date format for Record.Date.
const DateLayout = "2006-01-02"

type (
	// Kind distinguishes the two record collections. The counterpart of an
	// expense is a supplier, the counterpart of a sale a customer.
	Kind string

	// Record is one expense or sale line item. Party details are a snapshot
	// taken at save time; deleting the party later does not alter the record.
	Record struct {
		ID            string    `json:"id,omitempty"`
		Name          string    `json:"name"`
		Quantity      float64   `json:"quantity"`
		UnitPrice     float64   `json:"unitPrice"`
		Note          string    `json:"note,omitempty"`
		PartyName     string    `json:"partyName"`
		PartyLocation string    `json:"partyLocation,omitempty"`
		PartyPhone    string    `json:"partyPhone,omitempty"`
		PartyEmail    string    `json:"partyEmail,omitempty"`
		Date          string    `json:"date"`
		CreatedAt     time.Time `json:"createdAt"`
		OwnerID       string    `json:"ownerId"`
	}

	// LineInput is one raw form line as entered by the user. Quantity and
	// Price stay strings here; coercion happens during normalization.
	LineInput struct {
		Name     string `json:"name"`
		Quantity string `json:"quantity"`
		Price    string `json:"price"`
		Note     string `json:"note"`
		Party    string `json:"party"`
	}
)

func (k Kind) Valid() bool {
	return k == KindExpense || k == KindSale
}

// PartyLabel returns the user-facing name of the counterpart field.
func (k Kind) PartyLabel() string {
	if k == KindSale {
		return "customer"
	}
	return "supplier"
}

// ParseKind maps a path segment to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindExpense:
		return KindExpense, nil
	case KindSale:
		return KindSale, nil
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}

// ParseAmount coerces raw numeric input to a float. Empty or non-numeric
// text yields 0; presence of required raw text is checked separately so the
// two concerns stay independent.
func ParseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// NormalizeBatch converts raw line inputs plus a shared date into one Record
// per line. Validation is atomic: every missing or invalid required field
// across the whole batch is collected into a single ValidationError and no
// records are produced. Labels carry the item index when the batch has more
// than one line so the caller can present one consolidated message.
func NormalizeBatch(items []LineInput, date string, now time.Time, ownerID string) ([]Record, error) {
	verr := &ValidationError{}

	date = strings.TrimSpace(date)
	if date == "" {
		verr.Add("date")
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		verr.Add("date")
	}

	if len(items) == 0 {
		verr.Add("items")
		return nil, verr
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		label := func(field string) string {
			if len(items) > 1 {
				return fmt.Sprintf("item %d: %s", i+1, field)
			}
			return field
		}

		name := strings.TrimSpace(item.Name)
		if name == "" {
			verr.Add(label("name"))
		}

		qty := ParseAmount(item.Quantity)
		if strings.TrimSpace(item.Quantity) == "" || qty <= 0 {
			verr.Add(label("quantity"))
		}

		price := ParseAmount(item.Price)
		if strings.TrimSpace(item.Price) == "" || price < 0 {
			verr.Add(label("unit price"))
		}

		party := strings.TrimSpace(item.Party)
		if party == "" {
			verr.Add(label("party"))
		}

		records = append(records, Record{
			Name:      name,
			Quantity:  qty,
			UnitPrice: price,
			Note:      strings.TrimSpace(item.Note),
			PartyName: party,
			Date:      date,
			CreatedAt: now,
			OwnerID:   ownerID,
		})
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return records, nil
}

// AttachParty copies the party snapshot fields onto the record.
func (r *Record) AttachParty(p Party) {
	r.PartyName = p.Name
	r.PartyLocation = p.Location
	r.PartyPhone = p.Phone
	r.PartyEmail = p.Email
}
