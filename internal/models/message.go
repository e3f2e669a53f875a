package models

import "time"

// Message status values. No "delivered" state is modeled.
const (
	StatusSent = "sent"
	StatusSeen = "seen"
)

// Profile is a point-in-time snapshot of a counterparty's display attributes,
// taken when the message is stored. It is kept on the message itself so chat
// history renders even if the account changes later or never existed.
type Profile struct {
	Name    string `json:"name" bson:"name"`
	Picture string `json:"picture" bson:"picture"`
	Number  string `json:"number" bson:"number"`
}

// Message represents a single chat message between two parties. Neither party
// is required to exist as an Account.
type Message struct {
	ID              string    `json:"id" bson:"_id,omitempty"`
	ExternalID      string    `json:"external_id" bson:"external_id"`
	From            string    `json:"from" bson:"from"`
	To              string    `json:"to" bson:"to"`
	Content         string    `json:"content" bson:"content"`
	Timestamp       time.Time `json:"timestamp" bson:"timestamp"`
	Status          string    `json:"status" bson:"status"`
	ReceiverProfile Profile   `json:"receiver_profile" bson:"receiver_profile"`
}
