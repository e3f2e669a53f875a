package models

import "time"

// Account represents a registered user, identified by their phone-shaped wa_id.
// Accounts are created once and never updated or deleted.
type Account struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	WaID      string    `json:"wa_id" bson:"wa_id"`
	Name      string    `json:"name,omitempty" bson:"name"`
	Picture   string    `json:"picture,omitempty" bson:"picture"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
