package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/tapin/server/internal/cycle"
	"github.com/tapin/server/internal/engine"
	"github.com/tapin/server/internal/models"
	"github.com/tapin/server/internal/observability"
	"github.com/tapin/server/internal/repository"
)

// PostingService orchestrates a post: file storage, EXIF inspection,
// thumbnail generation, the lifecycle engine mutation, and the fanout
// (websocket events, push notifications, metrics).
type PostingService struct {
	engine     *engine.Engine
	storage    *PhotoStorageService
	thumbnails *ThumbnailService
	exif       *EXIFService
	hub        *WebSocketHub
	fcm        *FCMService // nil when push is disabled
	groupRepo  repository.GroupRepo
	deviceRepo repository.DeviceRepo
	metrics    *observability.BusinessMetrics
}

// NewPostingService creates a new PostingService
func NewPostingService(
	eng *engine.Engine,
	storage *PhotoStorageService,
	thumbnails *ThumbnailService,
	exif *EXIFService,
	hub *WebSocketHub,
	fcm *FCMService,
	groupRepo repository.GroupRepo,
	deviceRepo repository.DeviceRepo,
	metrics *observability.BusinessMetrics,
) *PostingService {
	return &PostingService{
		engine:     eng,
		storage:    storage,
		thumbnails: thumbnails,
		exif:       exif,
		hub:        hub,
		fcm:        fcm,
		groupRepo:  groupRepo,
		deviceRepo: deviceRepo,
		metrics:    metrics,
	}
}

func (s *PostingService) requireMember(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, models.ErrGroupNotFound
	}
	if group.Member(userID) == nil {
		return nil, models.ErrNotAMember
	}
	return group, nil
}

// PostToday uploads and posts a Today photo for the user.
func (s *PostingService) PostToday(ctx context.Context, userID, groupID string, imageData []byte, filename string, overlay *models.TextOverlay) (*models.Photo, error) {
	ctx, span := observability.StartServiceSpan(ctx, "posting", "PostToday")
	defer span.End()

	if _, err := s.requireMember(ctx, userID, groupID); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	now := time.Now()
	exifData, _ := s.exif.ExtractFromBytes(imageData)

	dateKey := cycle.DateKey(now)
	storedPath, err := s.storage.StoreToday(bytes.NewReader(imageData), groupID, dateKey, userID, filename, int64(len(imageData)), now)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.PostToday(ctx, userID, groupID, storedPath, overlay)
	if err != nil && result == nil {
		// The gate rejected the post, so the file has no record.
		s.storage.Delete(storedPath)
		s.recordToday(ctx, groupID, false)
		observability.RecordError(span, err)
		return nil, err
	}

	s.generateThumbs(imageData, result.Photo.PhotoID, storedPath, exifData)
	s.recordToday(ctx, groupID, true)
	observability.SetSuccess(span)

	s.hub.BroadcastToTopic(GroupTopic(groupID), WSMessage{
		Type: WSTypePhotoPosted,
		Payload: PhotoPostedPayload{
			GroupID: groupID,
			Kind:    string(models.PhotoKindToday),
			Photo:   result.Photo,
		},
	})

	// A failed snapshot write surfaces here; the post itself stands.
	return result.Photo, err
}

// PostBlitz uploads and posts a Blitz photo into the group's current
// round, starting it when it was waiting.
func (s *PostingService) PostBlitz(ctx context.Context, userID, groupID string, imageData []byte, filename string, overlay *models.TextOverlay) (*models.Photo, *models.BlitzRound, error) {
	ctx, span := observability.StartServiceSpan(ctx, "posting", "PostBlitz")
	defer span.End()

	group, err := s.requireMember(ctx, userID, groupID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, nil, err
	}

	now := time.Now()
	exifData, _ := s.exif.ExtractFromBytes(imageData)

	round, ok := s.engine.CurrentRound(groupID)
	if !ok {
		return nil, nil, models.ErrNoActiveRound
	}

	storedPath, err := s.storage.StoreBlitz(bytes.NewReader(imageData), groupID, round.RoundID, userID, filename, int64(len(imageData)), now)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.engine.PostBlitz(ctx, userID, groupID, storedPath, overlay)
	if err != nil && result == nil {
		s.storage.Delete(storedPath)
		s.recordBlitz(ctx, groupID, false, false)
		observability.RecordError(span, err)
		return nil, nil, err
	}

	s.generateThumbs(imageData, result.Photo.PhotoID, storedPath, exifData)
	s.recordBlitz(ctx, groupID, true, result.RoundStarted)
	observability.SetSuccess(span)

	s.hub.BroadcastToTopic(GroupTopic(groupID), WSMessage{
		Type: WSTypePhotoPosted,
		Payload: PhotoPostedPayload{
			GroupID: groupID,
			Kind:    string(models.PhotoKindBlitz),
			Photo:   result.Photo,
		},
	})

	if result.RoundStarted {
		s.broadcastRound(WSTypeRoundStarted, result.Round, "")
		s.notifyRoundStarted(group, result.Round, userID)
	}

	return result.Photo, result.Round, err
}

// UpdatePosition moves a photo on the group canvas.
func (s *PostingService) UpdatePosition(ctx context.Context, photoID string, x, y float64, zIndex int) error {
	return s.engine.UpdatePosition(ctx, photoID, x, y, zIndex)
}

// TodayFeed returns the group's Today canvas for the current cycle.
func (s *PostingService) TodayFeed(ctx context.Context, userID, groupID string) (*models.TodayFeedResponse, error) {
	if _, err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}

	dateKey, photos, hasPosted := s.engine.TodayFeed(userID, groupID)
	if photos == nil {
		photos = []*models.Photo{}
	}
	return &models.TodayFeedResponse{
		DateKey:   dateKey,
		Photos:    photos,
		HasPosted: hasPosted,
	}, nil
}

// BlitzFeed returns the group's current round and its photos.
func (s *PostingService) BlitzFeed(ctx context.Context, userID, groupID string) (*models.BlitzFeedResponse, error) {
	if _, err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}

	round, photos, hasPosted, err := s.engine.BlitzFeed(userID, groupID)
	if err != nil {
		return nil, err
	}
	if photos == nil {
		photos = []*models.Photo{}
	}
	return &models.BlitzFeedResponse{
		Round:     models.RoundToResponse(&round, time.Now()),
		Photos:    photos,
		HasPosted: hasPosted,
	}, nil
}

// CurrentRound returns the group's round as a wire response.
func (s *PostingService) CurrentRound(ctx context.Context, userID, groupID string) (*models.RoundResponse, error) {
	if _, err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}

	round, ok := s.engine.CurrentRound(groupID)
	if !ok {
		return nil, models.ErrNoActiveRound
	}
	resp := models.RoundToResponse(&round, time.Now())
	return &resp, nil
}

// EndRound rolls the round over on the owner's request.
func (s *PostingService) EndRound(ctx context.Context, userID, groupID string) (*models.RoundResponse, error) {
	group, err := s.requireMember(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsOwner(userID) {
		return nil, models.ErrNotGroupOwner
	}

	event, err := s.engine.EndRound(ctx, groupID)
	if event == nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordRollover(ctx, groupID, "manual")
	}
	s.broadcastRound(WSTypeRoundEnded, &event.NewRound, event.OldRoundID)

	resp := models.RoundToResponse(&event.NewRound, time.Now())
	return &resp, err
}

// LockRound freezes the group's round on the owner's request.
func (s *PostingService) LockRound(ctx context.Context, userID, groupID string) (*models.RoundResponse, error) {
	group, err := s.requireMember(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsOwner(userID) {
		return nil, models.ErrNotGroupOwner
	}

	round, err := s.engine.LockRound(ctx, groupID)
	if err != nil && round.RoundID == "" {
		return nil, err
	}

	resp := models.RoundToResponse(&round, time.Now())
	return &resp, err
}

// Recap returns the date keys with Today history, and the photos for
// one date when dateKey is set.
func (s *PostingService) Recap(ctx context.Context, userID, groupID, dateKey string) (*models.RecapResponse, error) {
	if _, err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}

	resp := &models.RecapResponse{DateKeys: s.engine.RecapKeys()}
	if dateKey != "" {
		photos := make([]*models.Photo, 0)
		for _, p := range s.engine.RecapForDate(dateKey) {
			if p.GroupID == groupID {
				photos = append(photos, p)
			}
		}
		resp.Photos = photos
	}
	return resp, nil
}

func (s *PostingService) generateThumbs(imageData []byte, photoID, storedPath string, exifData *EXIFData) {
	orientation := 1
	if exifData != nil {
		orientation = exifData.Orientation
	}
	if _, err := s.thumbnails.GenerateThumbnails(imageData, photoID, storedPath, orientation); err != nil {
		observability.Warnf("Thumbnail generation failed for %s: %v", photoID, err)
	}
}

func (s *PostingService) broadcastRound(eventType string, round *models.BlitzRound, previousRoundID string) {
	now := time.Now()
	payload := RoundEventPayload{
		GroupID:          round.GroupID,
		RoundID:          round.RoundID,
		PreviousRoundID:  previousRoundID,
		Status:           string(round.Status),
		Prompt:           round.Prompt,
		SecondsRemaining: round.SecondsRemaining(now),
	}
	if round.EndsAt != nil {
		formatted := round.EndsAt.UTC().Format(time.RFC3339)
		payload.EndsAt = &formatted
	}
	s.hub.BroadcastToTopic(GroupTopic(round.GroupID), WSMessage{
		Type:    eventType,
		Payload: payload,
	})
}

// notifyRoundStarted pushes the round start to every group member
// except the poster. Push failures never affect the post.
func (s *PostingService) notifyRoundStarted(group *models.Group, round *models.BlitzRound, posterID string) {
	if s.fcm == nil || s.deviceRepo == nil {
		return
	}

	memberIDs := make([]string, 0, len(group.Members))
	for _, m := range group.Members {
		if m.UserID != posterID {
			memberIDs = append(memberIDs, m.UserID)
		}
	}
	if len(memberIDs) == 0 {
		return
	}

	notification := RoundNotification{
		GroupID:   group.GroupID,
		GroupName: group.Name,
		RoundID:   round.RoundID,
		Prompt:    round.Prompt,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tokens, err := s.deviceRepo.GetTokensForUsers(ctx, memberIDs)
		if err != nil {
			observability.Warnf("Failed to load push tokens for group %s: %v", group.GroupID, err)
			return
		}

		sent, err := s.fcm.SendRoundStartedToMany(ctx, tokens, notification)
		if s.metrics != nil {
			s.metrics.RecordPushSend(ctx, "round_started", len(tokens), err == nil)
		}
		observability.Infof("Round start push: %d/%d sent for group %s", sent, len(tokens), group.GroupID)
	}()
}

func (s *PostingService) recordToday(ctx context.Context, groupID string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordTodayPost(ctx, groupID, success)
	}
}

func (s *PostingService) recordBlitz(ctx context.Context, groupID string, success, started bool) {
	if s.metrics != nil {
		s.metrics.RecordBlitzPost(ctx, groupID, success, started)
	}
}
