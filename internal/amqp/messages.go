package amqp

import (
	"encoding/json"
	"time"
)

// DonationExportMessage carries only the donation log ID. The worker fetches
// the full row from the database before exporting it.
type DonationExportMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDonationExportMessage(id int64) *DonationExportMessage {
	return &DonationExportMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *DonationExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DonationExportMessageFromJSON(data []byte) (*DonationExportMessage, error) {
	var msg DonationExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
