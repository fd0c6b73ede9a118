package amqp

import (
	"testing"

	"tally/internal/core"
)

func TestRecordEvent_JSONRoundTrip(t *testing.T) {
	evt := NewRecordEvent("rec-1", "u1", core.KindExpense, ActionCreated)

	data, err := evt.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := RecordEventFromJSON(data)
	if err != nil {
		t.Fatalf("RecordEventFromJSON: %v", err)
	}
	if got.RecordID != "rec-1" || got.OwnerID != "u1" || got.Kind != core.KindExpense || got.Action != ActionCreated {
		t.Errorf("round trip = %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp should survive the round trip")
	}
}

func TestRecordEventFromJSON_RejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"unknown kind", `{"recordId":"r","ownerId":"u","kind":"stocks","action":"created"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := RecordEventFromJSON([]byte(tc.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
