package model

import "time"

// Conversation is the message channel paired with a contract. It is created
// by the contract factory and back-linked once the contract exists.
type Conversation struct {
	ID            string    `json:"id"`
	Participants  []string  `json:"participants"`
	JobID         string    `json:"jobId,omitempty"`
	BidID         string    `json:"bidId,omitempty"`
	ContractID    string    `json:"contractId,omitempty"`
	LastMessageID string    `json:"lastMessageId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HasParticipant reports whether the user belongs to the conversation
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
