package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// CashOutSyncMessage announces that a currency was cashed out locally and
// must be mirrored to the remote sheet. The worker reloads the record by id.
type CashOutSyncMessage struct {
	CurrencyID string    `json:"currency_id"`
	Version    int64     `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewCashOutSyncMessage(currencyID string, version int64) *CashOutSyncMessage {
	return &CashOutSyncMessage{
		CurrencyID: currencyID,
		Version:    version,
		Timestamp:  time.Now(),
	}
}

func (m *CashOutSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CashOutSyncMessageFromJSON decodes a message and rejects ones without a currency id.
func CashOutSyncMessageFromJSON(data []byte) (*CashOutSyncMessage, error) {
	var msg CashOutSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.CurrencyID == "" {
		return nil, errors.New("sync message without currency id")
	}
	return &msg, nil
}
