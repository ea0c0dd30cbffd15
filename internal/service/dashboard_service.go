package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edupath-id/edupath-api/internal/models"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:summary:%s"

type dashboardEnrollmentRepository interface {
	CountByUser(ctx context.Context, userID string) (total, completed int, err error)
	ListDetailedByUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error)
}

// DashboardService assembles the caller's landing page summary with
// cache-aside reads keyed per user.
type DashboardService struct {
	enrollments dashboardEnrollmentRepository
	cache       *CacheService
	logger      *zap.Logger
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(enrollments dashboardEnrollmentRepository, cache *CacheService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{enrollments: enrollments, cache: cache, logger: logger}
}

// Summary returns enrollment counters and recent activity for the caller.
// The boolean reports whether the summary was served from cache.
func (s *DashboardService) Summary(ctx context.Context, userID string) (*models.DashboardSummary, bool, error) {
	if userID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	key := fmt.Sprintf(dashboardCacheKey, userID)
	var cached models.DashboardSummary
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	total, completed, err := s.enrollments.CountByUser(ctx, userID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}

	recent, err := s.enrollments.ListDetailedByUser(ctx, userID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recent enrollments")
	}
	if len(recent) > 5 {
		recent = recent[:5]
	}

	summary := &models.DashboardSummary{
		UserID:               userID,
		TotalEnrollments:     total,
		CompletedEnrollments: completed,
		InProgress:           total - completed,
		RecentEnrollments:    recent,
	}

	if err := s.cache.Set(ctx, key, summary, 0); err != nil {
		s.logger.Warn("failed to cache dashboard summary", zap.String("user_id", userID), zap.Error(err))
	}
	return summary, false, nil
}

// InvalidateFor drops the cached summary after enrollment changes.
func (s *DashboardService) InvalidateFor(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf(dashboardCacheKey, userID)); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.String("user_id", userID), zap.Error(err))
	}
}
