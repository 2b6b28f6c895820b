package amqp

import (
	"encoding/json"
	"time"
)

// RefreshMessage asks the worker to re-fetch one series for a date range and
// snapshot the result. It carries only identifiers; the worker fetches the
// data itself.
type RefreshMessage struct {
	SeriesID  string    `json:"series_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRefreshMessage creates a refresh message for a series and range.
func NewRefreshMessage(seriesID, startDate, endDate string) *RefreshMessage {
	return &RefreshMessage{
		SeriesID:  seriesID,
		StartDate: startDate,
		EndDate:   endDate,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON creates a message from JSON bytes
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
