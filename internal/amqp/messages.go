package amqp

import (
	"encoding/json"
	"time"

	"otchet/internal/core"
)

// ReportImportMessage carries a complete dataset. The consumer replaces the
// stored periods with it, so a message is the whole tab list in order.
type ReportImportMessage struct {
	Source    string              `json:"source"`
	Periods   []core.ReportPeriod `json:"periods"`
	Timestamp time.Time           `json:"timestamp"`
}

// NewReportImportMessage stamps a dataset for publishing.
func NewReportImportMessage(source string, periods []core.ReportPeriod) *ReportImportMessage {
	return &ReportImportMessage{
		Source:    source,
		Periods:   periods,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportImportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportImportMessageFromJSON decodes a message body.
func ReportImportMessageFromJSON(data []byte) (*ReportImportMessage, error) {
	var msg ReportImportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
