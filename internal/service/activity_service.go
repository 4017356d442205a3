package service

import (
	"context"
	"fmt"
	"time"

	"techpay/internal/repository"
)

type ActivityLogResponse struct {
	ID         uint        `json:"id"`
	Actor      string      `json:"actor"`
	RequestID  string      `json:"request_id,omitempty"`
	Action     string      `json:"action"`
	EntityID   string      `json:"entity_id"`
	EntityName string      `json:"entity_name,omitempty"`
	Details    interface{} `json:"details"`
	CreatedAt  string      `json:"created_at"`
}

type ActivityService interface {
	GetActivityLogs(ctx context.Context, action string, page, limit int) ([]ActivityLogResponse, int64, error)
}

type activityService struct {
	activityRepo repository.ActivityRepository
}

func NewActivityService(activityRepo repository.ActivityRepository) ActivityService {
	return &activityService{activityRepo: activityRepo}
}

func (s *activityService) GetActivityLogs(ctx context.Context, action string, page, limit int) ([]ActivityLogResponse, int64, error) {
	logs, total, err := s.activityRepo.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity logs: %w", err)
	}

	out := make([]ActivityLogResponse, len(logs))
	for i, l := range logs {
		out[i] = ActivityLogResponse{
			ID:         l.ID,
			Actor:      l.Actor,
			RequestID:  l.RequestID,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		}
	}
	return out, total, nil
}
