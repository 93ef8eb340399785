package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"timesplit/internal/core"
)

type fakeAck struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }
func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestBindingKey(t *testing.T) {
	if got := BindingKey("timesplit"); got != "timesplit.#" {
		t.Errorf("BindingKey(timesplit) = %q", got)
	}
	if got := BindingKey(""); got != "#" {
		t.Errorf("BindingKey(\"\") = %q", got)
	}
}

func TestChangeEventFromJSON(t *testing.T) {
	ev := NewEntryEvent(EntryCreated, core.TimeEntry{ID: "e1", Date: "2024-01-01", TotalMinutes: 5})
	body, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := ChangeEventFromJSON(body)
	if err != nil {
		t.Fatalf("ChangeEventFromJSON() error = %v", err)
	}
	if got.Type != EntryCreated || got.ID != "e1" || got.Entry == nil || got.Entry.TotalMinutes != 5 {
		t.Errorf("decoded = %+v", got)
	}

	if _, err := ChangeEventFromJSON([]byte(`{"id":"x"}`)); err == nil {
		t.Error("expected error for event without type")
	}
	if _, err := ChangeEventFromJSON([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed body")
	}
}

func TestSettle(t *testing.T) {
	valid, _ := NewEntryDeletedEvent("e1").ToJSON()

	tests := []struct {
		name         string
		body         []byte
		handlerErr   error
		wantAck      bool
		wantRequeued bool
	}{
		{"success acks", valid, nil, true, false},
		{"malformed is dropped", []byte("{"), nil, false, false},
		{"transient failure requeues", valid, errors.New("busy"), false, true},
		{"permanent failure is dropped", valid, fmt.Errorf("bad event: %w", ErrPermanent), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			settle(context.Background(), ack, tt.body, func(context.Context, *ChangeEvent) error {
				return tt.handlerErr
			})

			if ack.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", ack.acked, tt.wantAck)
			}
			if !tt.wantAck && !ack.nacked {
				t.Error("expected nack")
			}
			if ack.requeued != tt.wantRequeued {
				t.Errorf("requeued = %v, want %v", ack.requeued, tt.wantRequeued)
			}
		})
	}
}
