// Package storeerr holds the errors every store returns for conditions the
// domain layer reacts to, independent of the backing database.
package storeerr

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound means no record has the requested id. Malformed ids also
	// report ErrNotFound, since ids are opaque to callers.
	ErrNotFound = errors.New("record not found")

	// ErrGuardFailed means the record exists but the condition attached to a
	// conditional update did not hold, so nothing was written.
	ErrGuardFailed = errors.New("update guard did not match")
)

// FromMongo maps mongo.ErrNoDocuments to ErrNotFound and passes every
// other error through.
func FromMongo(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
