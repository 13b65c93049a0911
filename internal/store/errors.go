package store

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrInvalidID is returned when an id string is not a 24-hex ObjectID.
	// It is distinct from absence, which is reported as a nil record.
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidLimit  = errors.New("limit must be positive")
	ErrIndexNotReady = errors.New("vector index did not become queryable")
	ErrIndexDrop     = errors.New("failed to drop search index")
)

// ParseID converts an external id to an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}
