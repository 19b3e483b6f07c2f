package models

import (
	"fmt"
	"strings"
	"time"
)

// PhotoKind distinguishes the two posting surfaces.
type PhotoKind string

const (
	PhotoKindToday PhotoKind = "today"
	PhotoKindBlitz PhotoKind = "blitz"
)

// OverlaySize is the text overlay size preset.
type OverlaySize string

const (
	OverlaySmall  OverlaySize = "S"
	OverlayMedium OverlaySize = "M"
	OverlayLarge  OverlaySize = "L"
)

// TextOverlay is an optional caption rendered on top of a photo.
type TextOverlay struct {
	Text  string      `json:"text"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Size  OverlaySize `json:"size"`
	Color string      `json:"color"`
}

// Validate checks the overlay fields.
func (o *TextOverlay) Validate() error {
	if strings.TrimSpace(o.Text) == "" {
		return ErrEmptyOverlayText
	}
	switch o.Size {
	case OverlaySmall, OverlayMedium, OverlayLarge:
		return nil
	default:
		return ErrInvalidOverlaySize
	}
}

// Photo is a posted photo record. Today photos carry a DateKey, Blitz
// photos carry a RoundID; the remaining fields are shared.
type Photo struct {
	PhotoID     string       `json:"photoId"`
	GroupID     string       `json:"groupId"`
	UserID      string       `json:"userId"`
	Kind        PhotoKind    `json:"kind"`
	DateKey     string       `json:"dateKey,omitempty"`
	RoundID     string       `json:"roundId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	ImageURI    string       `json:"imageUri"`
	X           float64      `json:"x"`
	Y           float64      `json:"y"`
	ZIndex      int          `json:"zIndex"`
	TextOverlay *TextOverlay `json:"textOverlay,omitempty"`
}

// StablePhotoID builds the composite photo id from its owning group,
// posting surface, author, and creation instant. Ids are never reused;
// re-appending an id-identical record is the idempotent confirm case,
// not a collision.
func StablePhotoID(groupID string, kind PhotoKind, userID string, createdAt time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%d", groupID, kind, userID, createdAt.UnixMilli())
}

// NewTodayPhoto creates a Today photo record.
func NewTodayPhoto(groupID, userID, dateKey, imageURI string, createdAt time.Time, overlay *TextOverlay) (*Photo, error) {
	if err := validatePhotoFields(groupID, userID, imageURI, overlay); err != nil {
		return nil, err
	}
	if strings.TrimSpace(dateKey) == "" {
		return nil, ErrEmptyDateKey
	}

	return &Photo{
		PhotoID:     StablePhotoID(groupID, PhotoKindToday, userID, createdAt),
		GroupID:     groupID,
		UserID:      userID,
		Kind:        PhotoKindToday,
		DateKey:     dateKey,
		CreatedAt:   createdAt,
		ImageURI:    imageURI,
		TextOverlay: overlay,
	}, nil
}

// NewBlitzPhoto creates a Blitz photo record attached to a round.
func NewBlitzPhoto(groupID, userID, roundID, imageURI string, createdAt time.Time, overlay *TextOverlay) (*Photo, error) {
	if err := validatePhotoFields(groupID, userID, imageURI, overlay); err != nil {
		return nil, err
	}
	if strings.TrimSpace(roundID) == "" {
		return nil, ErrEmptyRoundID
	}

	return &Photo{
		PhotoID:     StablePhotoID(groupID, PhotoKindBlitz, userID, createdAt),
		GroupID:     groupID,
		UserID:      userID,
		Kind:        PhotoKindBlitz,
		RoundID:     roundID,
		CreatedAt:   createdAt,
		ImageURI:    imageURI,
		TextOverlay: overlay,
	}, nil
}

func validatePhotoFields(groupID, userID, imageURI string, overlay *TextOverlay) error {
	if strings.TrimSpace(groupID) == "" {
		return ErrEmptyGroupID
	}
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(imageURI) == "" {
		return ErrEmptyImageURI
	}
	if overlay != nil {
		if err := overlay.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Photo errors
type PhotoError struct {
	Message string
}

func (e PhotoError) Error() string {
	return e.Message
}

var (
	ErrEmptyGroupID       = PhotoError{"group id cannot be empty"}
	ErrEmptyUserID        = PhotoError{"user id cannot be empty"}
	ErrEmptyImageURI      = PhotoError{"image uri cannot be empty"}
	ErrEmptyDateKey       = PhotoError{"date key cannot be empty"}
	ErrEmptyRoundID       = PhotoError{"round id cannot be empty"}
	ErrEmptyOverlayText   = PhotoError{"overlay text cannot be empty"}
	ErrInvalidOverlaySize = PhotoError{"overlay size must be S, M, or L"}
	ErrPhotoNotFound      = PhotoError{"photo not found"}
	ErrAlreadyPosted      = PhotoError{"already posted in this cycle"}
	ErrNoActiveRound      = PhotoError{"no active round for this group"}
	ErrNotAuthenticated   = PhotoError{"not authenticated"}
	ErrInvalidExtension   = PhotoError{"file extension not allowed"}
	ErrFileTooLarge       = PhotoError{"file size exceeds maximum allowed"}
	ErrPathTraversal      = PhotoError{"invalid path - path traversal detected"}
)
