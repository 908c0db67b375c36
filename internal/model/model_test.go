package model

import "testing"

func TestClampWeight(t *testing.T) {
    cases := map[int]int{-3: 1, 0: 1, 1: 1, 5: 5, 10: 10, 11: 10, 99: 10}
    for in, want := range cases {
        if got := ClampWeight(in); got != want {
            t.Errorf("ClampWeight(%d) = %d, want %d", in, got, want)
        }
    }
}

func TestEventIsFull(t *testing.T) {
    two := 2
    e := Event{MaxParticipants: &two, ParticipantsCount: 1}
    if e.IsFull() {
        t.Error("1 of 2 is not full")
    }
    e.ParticipantsCount = 2
    if !e.IsFull() {
        t.Error("2 of 2 is full")
    }
    if (Event{ParticipantsCount: 1000}).IsFull() {
        t.Error("events without a cap are never full")
    }
}

func TestStatusValidators(t *testing.T) {
    if !ValidIntentStatus(IntentGoingAlone) || ValidIntentStatus("looking") {
        t.Error("intent status validation")
    }
    if !ValidRequestStatus(RequestRejected) || ValidRequestStatus("") {
        t.Error("request status validation")
    }
    if !ValidEventStatus(EventStatusPast) || ValidEventStatus("archived") {
        t.Error("event status validation")
    }
}
