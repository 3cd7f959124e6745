package ws

import (
	"time"

	"credit_engine/internal/domain"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// server → client
type BalancePayload struct {
	Balance  domain.Balance `json:"balance"`
	EntryIDs []int64        `json:"entry_ids,omitempty"`
	At       time.Time      `json:"at"`
}
