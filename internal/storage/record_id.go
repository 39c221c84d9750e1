package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Collection names for the two document collections managed by the store.
const (
	CollectionBlogPosts = "blog_post"
	CollectionProjects  = "project"
)

// ErrInvalidRecordID is returned when an identifier cannot be parsed or names
// a different collection than the one being operated on.
var ErrInvalidRecordID = errors.New("invalid record id")

// RecordID is the compound identifier used for every persisted record: the
// collection name joined with an opaque random suffix. Only the string form
// crosses the store boundary.
type RecordID struct {
	Collection string
	Key        string
}

// NewRecordID mints a fresh identifier scoped to the provided collection.
func NewRecordID(collection string) (RecordID, error) {
	if collection == "" {
		return RecordID{}, fmt.Errorf("mint record id: collection is required")
	}
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return RecordID{}, fmt.Errorf("mint record id: %w", err)
	}
	return RecordID{Collection: collection, Key: hex.EncodeToString(bytes)}, nil
}

// ParseRecordID splits a compound identifier into its collection and key.
func ParseRecordID(value string) (RecordID, error) {
	collection, key, found := strings.Cut(value, ":")
	if !found || collection == "" || key == "" {
		return RecordID{}, fmt.Errorf("%w: %q", ErrInvalidRecordID, value)
	}
	return RecordID{Collection: collection, Key: key}, nil
}

func (id RecordID) String() string {
	return id.Collection + ":" + id.Key
}

// keyInCollection parses raw and verifies it belongs to collection. A
// mismatched collection fails closed so a delete can never touch another
// collection's record.
func keyInCollection(raw, collection string) (string, error) {
	id, err := ParseRecordID(raw)
	if err != nil {
		return "", err
	}
	if id.Collection != collection {
		return "", fmt.Errorf("%w: %q does not belong to collection %q", ErrInvalidRecordID, raw, collection)
	}
	return id.Key, nil
}
