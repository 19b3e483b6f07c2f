package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2/google"

	"github.com/tapin/server/internal/observability"
)

// FCMService sends round push notifications through the Firebase Cloud
// Messaging HTTP v1 API.
type FCMService struct {
	projectID   string
	credentials []byte
	httpClient  *http.Client
	token       string
	tokenExpiry time.Time
	tokenMu     sync.Mutex
}

// NewFCMService creates a new FCMService with the given credentials file
func NewFCMService(credentialsPath string) (*FCMService, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path is required")
	}

	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("credentials file not accessible: %w", err)
	}

	credData, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(credData, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	svc := &FCMService{
		projectID:   creds.ProjectID,
		credentials: credData,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}

	// Test getting a token
	if _, err := svc.getAccessToken(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to get initial access token: %w", err)
	}
	observability.Infof("Firebase Cloud Messaging initialized for project %s", creds.ProjectID)

	return svc, nil
}

// getAccessToken returns a valid OAuth2 access token, refreshing if needed
func (s *FCMService) getAccessToken(ctx context.Context) (string, error) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	// Return cached token if still valid (with 5 min buffer)
	if s.token != "" && time.Now().Add(5*time.Minute).Before(s.tokenExpiry) {
		return s.token, nil
	}

	scopes := []string{"https://www.googleapis.com/auth/firebase.messaging"}

	// Try default credentials first (uses GOOGLE_APPLICATION_CREDENTIALS)
	creds, err := google.FindDefaultCredentials(ctx, scopes...)
	if err != nil {
		creds, err = google.CredentialsFromJSON(ctx, s.credentials, scopes...)
		if err != nil {
			return "", fmt.Errorf("failed to create credentials: %w", err)
		}
	}

	token, err := creds.TokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}

	s.token = token.AccessToken
	s.tokenExpiry = token.Expiry

	return s.token, nil
}

// RoundNotification carries the data for a round lifecycle push.
type RoundNotification struct {
	GroupID   string
	GroupName string
	RoundID   string
	Prompt    string
}

// FCM API message structures
type fcmMessage struct {
	Message fcmMessageBody `json:"message"`
}

type fcmMessageBody struct {
	Token        string            `json:"token"`
	Data         map[string]string `json:"data,omitempty"`
	Notification *fcmNotification  `json:"notification,omitempty"`
	Android      *fcmAndroid       `json:"android,omitempty"`
	APNS         *fcmAPNS          `json:"apns,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority     string                  `json:"priority,omitempty"`
	Notification *fcmAndroidNotification `json:"notification,omitempty"`
}

type fcmAndroidNotification struct {
	ClickAction string `json:"click_action,omitempty"`
	ChannelID   string `json:"channel_id,omitempty"`
}

type fcmAPNS struct {
	Headers map[string]string `json:"headers,omitempty"`
	Payload *fcmAPNSPayload   `json:"payload,omitempty"`
}

type fcmAPNSPayload struct {
	Aps *fcmAps `json:"aps,omitempty"`
}

type fcmAps struct {
	Alert            *fcmApsAlert `json:"alert,omitempty"`
	Sound            string       `json:"sound,omitempty"`
	ContentAvailable int          `json:"content-available,omitempty"`
	Category         string       `json:"category,omitempty"`
}

type fcmApsAlert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SendRoundStarted pushes a "round is live" notification to one device.
func (s *FCMService) SendRoundStarted(ctx context.Context, fcmToken string, n RoundNotification) error {
	token, err := s.getAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	title := "Blitz round started"
	if n.GroupName != "" {
		title = fmt.Sprintf("Blitz round started in %s", n.GroupName)
	}
	body := fmt.Sprintf("%s — 5 minutes to post!", n.Prompt)

	message := fcmMessage{
		Message: fcmMessageBody{
			Token: fcmToken,
			Data: map[string]string{
				"type":    "round_started",
				"groupId": n.GroupID,
				"roundId": n.RoundID,
				"prompt":  n.Prompt,
			},
			Notification: &fcmNotification{
				Title: title,
				Body:  body,
			},
			Android: &fcmAndroid{
				Priority: "high",
				Notification: &fcmAndroidNotification{
					ClickAction: "OPEN_BLITZ_ROUND",
					ChannelID:   "blitz_rounds",
				},
			},
			APNS: &fcmAPNS{
				Headers: map[string]string{
					"apns-priority":  "10",
					"apns-push-type": "alert",
				},
				Payload: &fcmAPNSPayload{
					Aps: &fcmAps{
						Alert: &fcmApsAlert{
							Title: title,
							Body:  body,
						},
						Sound:            "default",
						ContentAvailable: 1,
						Category:         "BLITZ_ROUND",
					},
				},
			},
		},
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", s.projectID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		observability.Warnf("FCM API error: status=%d, body=%s", resp.StatusCode, string(respBody))
		return fmt.Errorf("FCM API error: %s", string(respBody))
	}

	return nil
}

// SendRoundStartedToMany sends the same notification to multiple tokens
// and returns how many sends succeeded.
func (s *FCMService) SendRoundStartedToMany(ctx context.Context, fcmTokens []string, n RoundNotification) (int, error) {
	if len(fcmTokens) == 0 {
		return 0, nil
	}

	successCount := 0
	for _, token := range fcmTokens {
		if err := s.SendRoundStarted(ctx, token, n); err != nil {
			observability.Warnf("FCM send failed for token %s...: %v", token[:min(20, len(token))], err)
			continue
		}
		successCount++
	}

	return successCount, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
