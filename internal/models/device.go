package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Device is a registered mobile device that receives round push
// notifications.
type Device struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Platform     string    `json:"platform"` // "ios" or "android"
	FCMToken     string    `json:"-"`        // never exposed
	RegisteredAt time.Time `json:"registeredAt"`
	LastSeenAt   time.Time `json:"lastSeenAt"`
}

// NewDevice creates a device registration.
func NewDevice(userID, platform, fcmToken string) (*Device, error) {
	platform = strings.TrimSpace(strings.ToLower(platform))
	fcmToken = strings.TrimSpace(fcmToken)

	if platform != "ios" && platform != "android" {
		return nil, ErrInvalidPlatform
	}
	if fcmToken == "" {
		return nil, ErrEmptyFCMToken
	}

	now := time.Now().UTC()
	return &Device{
		ID:           uuid.New().String(),
		UserID:       userID,
		Platform:     platform,
		FCMToken:     fcmToken,
		RegisteredAt: now,
		LastSeenAt:   now,
	}, nil
}

// Device errors
var (
	ErrInvalidPlatform = DeviceError{"platform must be 'ios' or 'android'"}
	ErrEmptyFCMToken   = DeviceError{"FCM token cannot be empty"}
	ErrDeviceNotFound  = DeviceError{"device not found"}
)

type DeviceError struct {
	Message string
}

func (e DeviceError) Error() string {
	return e.Message
}
