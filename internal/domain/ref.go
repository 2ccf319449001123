package domain

import (
	"encoding/json"
	"strings"
)

// RefKind tags which variant a ReactableRef holds.
type RefKind int

const (
	// RefExisting points at an object by id. The id may be unknown to the
	// store, in which case it is used as the external id of a new object.
	RefExisting RefKind = iota + 1
	// RefNew describes an object to create.
	RefNew
)

func (k RefKind) String() string {
	switch k {
	case RefExisting:
		return "existing"
	case RefNew:
		return "new"
	default:
		return "invalid"
	}
}

// ReactableRef identifies the object a pulse reacts to.
//
// For RefExisting, ID is set; Type, Title and ExternalID are optional hints
// used only if the id has to be materialized. For RefNew, Type and Title
// are set and ID is empty.
type ReactableRef struct {
	Kind RefKind

	ID string

	Type       ObjectType
	Title      string
	ExternalID string
	Metadata   json.RawMessage
}

// NewReactableRef builds a ref from loosely typed request fields. An id
// wins over a (type, title) pair. objectType may be empty only when an id
// is given.
func NewReactableRef(objectID, objectType, title, externalID string, metadata json.RawMessage) (ReactableRef, error) {
	objectID = strings.TrimSpace(objectID)
	title = strings.TrimSpace(title)
	externalID = strings.TrimSpace(externalID)

	var typ ObjectType
	if objectType != "" {
		t, ok := ParseObjectType(objectType)
		if !ok {
			return ReactableRef{}, ErrUnknownObjectType
		}
		typ = t
	}

	if objectID != "" {
		return ReactableRef{
			Kind:       RefExisting,
			ID:         objectID,
			Type:       typ,
			Title:      title,
			ExternalID: externalID,
			Metadata:   metadata,
		}, nil
	}

	if typ == "" || title == "" {
		return ReactableRef{}, ErrMissingObjectReference
	}

	return ReactableRef{
		Kind:       RefNew,
		Type:       typ,
		Title:      title,
		ExternalID: externalID,
		Metadata:   metadata,
	}, nil
}
