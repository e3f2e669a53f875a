package models

import "time"

// Conversation is the chat-list projection for one counterparty: the latest
// message exchanged with that party, flattened together with the partner's
// current account profile. Partner fields are empty when the counterparty has
// no registered account (left-join semantics). Never persisted.
type Conversation struct {
	MessageID      string    `json:"id" bson:"_id"`
	From           string    `json:"from" bson:"from"`
	To             string    `json:"to" bson:"to"`
	Content        string    `json:"content" bson:"content"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
	Status         string    `json:"status" bson:"status"`
	ChatPartner    string    `json:"chat_partner" bson:"chat_partner"`
	PartnerID      string    `json:"partner_id,omitempty" bson:"partner_id,omitempty"`
	PartnerName    string    `json:"partner_name,omitempty" bson:"partner_name,omitempty"`
	PartnerPicture string    `json:"partner_picture,omitempty" bson:"partner_picture,omitempty"`
	PartnerWaID    string    `json:"partner_wa_id,omitempty" bson:"partner_wa_id,omitempty"`
}
