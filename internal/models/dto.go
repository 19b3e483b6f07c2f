package models

import "time"

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegisterRequest is the body for POST /api/auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse returns the user together with the API key the client
// must present on subsequent requests.
type AuthResponse struct {
	User   UserResponse `json:"user"`
	APIKey string       `json:"apiKey"`
}

// CreateGroupRequest is the body for POST /api/groups.
type CreateGroupRequest struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
}

// AddMemberRequest is the body for POST /api/groups/{id}/members.
type AddMemberRequest struct {
	UserID string `json:"userId"`
}

// RegisterDeviceRequest is the body for POST /api/devices.
type RegisterDeviceRequest struct {
	Platform string `json:"platform"`
	FCMToken string `json:"fcmToken"`
}

// PositionUpdateRequest is the body for PATCH /api/photos/{id}/position.
type PositionUpdateRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	ZIndex int     `json:"zIndex"`
}

// RoundResponse is the wire shape of the current round, with the
// remaining time computed server-side so clients never trust a stale
// live status past its deadline.
type RoundResponse struct {
	RoundID          string      `json:"roundId"`
	GroupID          string      `json:"groupId"`
	Status           RoundStatus `json:"status"`
	Prompt           string      `json:"prompt"`
	EndsAt           *time.Time  `json:"endsAt,omitempty"`
	SecondsRemaining int64       `json:"secondsRemaining"`
}

// RoundToResponse builds a RoundResponse as of now.
func RoundToResponse(r *BlitzRound, now time.Time) RoundResponse {
	status := r.Status
	if r.IsExpired(now) {
		// Defensive: report an elapsed deadline as no longer live even
		// if the rollover side effect has not run yet.
		status = RoundWaiting
	}
	return RoundResponse{
		RoundID:          r.RoundID,
		GroupID:          r.GroupID,
		Status:           status,
		Prompt:           r.Prompt,
		EndsAt:           r.EndsAt,
		SecondsRemaining: r.SecondsRemaining(now),
	}
}

// TodayFeedResponse is the body for GET /api/groups/{id}/today.
type TodayFeedResponse struct {
	DateKey   string   `json:"dateKey"`
	Photos    []*Photo `json:"photos"`
	HasPosted bool     `json:"hasPosted"`
}

// BlitzFeedResponse is the body for GET /api/groups/{id}/blitz photos.
type BlitzFeedResponse struct {
	Round     RoundResponse `json:"round"`
	Photos    []*Photo      `json:"photos"`
	HasPosted bool          `json:"hasPosted"`
}

// RecapResponse is the body for GET /api/groups/{id}/recap.
type RecapResponse struct {
	DateKeys []string `json:"dateKeys"`
	Photos   []*Photo `json:"photos,omitempty"`
}

// InviteResponse is returned when an invite code is generated.
type InviteResponse struct {
	Code      string    `json:"code"`
	GroupID   string    `json:"groupId"`
	CreatedAt time.Time `json:"createdAt"`
}

// JoinResponse is returned when a join request is created.
type JoinResponse struct {
	GroupID string     `json:"groupId"`
	Status  JoinStatus `json:"status"`
}
