package amqp

import (
	"testing"
	"time"
)

func TestRefreshMessage_JSONRoundTrip(t *testing.T) {
	msg := NewRefreshMessage("CPIAUCSL", "2020-01-01", "2025-12-31")

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := RefreshMessageFromJSON(data)
	if err != nil {
		t.Fatalf("RefreshMessageFromJSON() error = %v", err)
	}
	if got.SeriesID != "CPIAUCSL" {
		t.Errorf("SeriesID = %q", got.SeriesID)
	}
	if got.StartDate != "2020-01-01" || got.EndDate != "2025-12-31" {
		t.Errorf("range = %q..%q", got.StartDate, got.EndDate)
	}
	if got.Timestamp.IsZero() || time.Since(got.Timestamp) > time.Minute {
		t.Errorf("Timestamp = %v, want recent", got.Timestamp)
	}
}

func TestRefreshMessageFromJSON_Malformed(t *testing.T) {
	if _, err := RefreshMessageFromJSON([]byte("not json")); err == nil {
		t.Fatal("RefreshMessageFromJSON(garbage) = nil error")
	}
}
