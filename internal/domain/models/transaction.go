// internal/domain/models/transaction.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction records one applied balance change. It is written once, after
// the change succeeded, and never updated.
type Transaction struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Reference    string             `bson:"reference" json:"reference"`
	UserID       string             `bson:"user_id" json:"user_id"`
	Type         TxnType            `bson:"type" json:"type"`
	Amount       int64              `bson:"amount" json:"amount"`
	CreditType   CreditType         `bson:"credit_type" json:"credit_type"`
	ActorID      string             `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	ActorRole    ActorRole          `bson:"actor_role" json:"actor_role"`
	BalanceAfter int64              `bson:"balance_after" json:"balance_after"`

	// Set when the change came from a redemption or an event payout.
	ProviderID string `bson:"provider_id,omitempty" json:"provider_id,omitempty"`
	OrgID      string `bson:"org_id,omitempty" json:"org_id,omitempty"`
	EventIndex *int   `bson:"event_index,omitempty" json:"event_index,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
