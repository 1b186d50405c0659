// internal/domain/models/provider.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Provider is a shelter or food bank that accepts credits against its quota.
type Provider struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	NameCI         string             `bson:"name_ci" json:"-"`
	Type           ProviderType       `bson:"type" json:"type"`
	AvailableQuota int64              `bson:"available_quota" json:"available_quota"`
}
