package service

import (
	"context"
	"log/slog"

	"lemon-sso/internal/event"
)

// AuditService writes one structured log record per token lifecycle event.
type AuditService struct {
	logger *slog.Logger
}

func NewAuditService(logger *slog.Logger) *AuditService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditService{logger: logger.With("component", "audit")}
}

// Run consumes events until ctx is done or the channel is closed.
func (s *AuditService) Run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			s.Log(ctx, e)
		}
	}
}

func (s *AuditService) Log(ctx context.Context, e event.Event) {
	level := slog.LevelInfo
	if e.Type == event.TypeSignInFailed {
		level = slog.LevelWarn
	}

	s.logger.LogAttrs(ctx, level, string(e.Type),
		slog.String("event_id", e.ID),
		slog.String("user_id", e.UserID),
		slog.String("username", e.Username),
		slog.Time("at", e.Timestamp),
	)
}
