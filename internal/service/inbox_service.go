package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ispdesk/routing-service/internal/config"
	"github.com/ispdesk/routing-service/internal/domain"
	"github.com/ispdesk/routing-service/internal/events"
	"github.com/ispdesk/routing-service/internal/repository"
	apperrors "github.com/ispdesk/routing-service/pkg/util"
)

// InboxService is the read side of the role inboxes: paginated
// listings, unread counters and the idempotent read toggle. It never
// writes ticket ownership.
type InboxService struct {
	stores repository.Stores
	cache  *redis.Client
	logger *zap.Logger
	cfg    config.InboxConfig
}

// InboxDependencies bundles collaborators for the service.
type InboxDependencies struct {
	Stores repository.Stores
	Cache  *redis.Client
	Logger *zap.Logger
	Config config.InboxConfig
}

// NewInboxService constructs the service.
func NewInboxService(deps InboxDependencies) *InboxService {
	return &InboxService{
		stores: deps.Stores,
		cache:  deps.Cache,
		logger: deps.Logger,
		cfg:    deps.Config,
	}
}

// InboxFilters narrows a listing.
type InboxFilters struct {
	Kind        *domain.TicketKind
	Priority    *domain.TicketPriority
	IncludeRead bool
}

// InboxPage is one page of a role's inbox.
type InboxPage struct {
	Items      []repository.InboxEntry
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// ListInbox returns a page of the role's inbox, ordered by priority
// rank then creation time descending.
func (s *InboxService) ListInbox(ctx context.Context, role domain.Role, page, pageSize int, filters InboxFilters) (*InboxPage, error) {
	if !role.Valid() {
		return nil, apperrors.NewInvalidRole(string(role))
	}
	if filters.Kind != nil && !filters.Kind.Valid() {
		return nil, apperrors.NewInvalidTicketKind(string(*filters.Kind))
	}
	if filters.Priority != nil && !filters.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *filters.Priority})
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	repoFilter := repository.InboxFilter{
		Role:        role,
		Kind:        filters.Kind,
		Priority:    filters.Priority,
		IncludeRead: filters.IncludeRead,
		Limit:       pageSize,
		Offset:      (page - 1) * pageSize,
	}

	total, err := s.stores.Inbox.Count(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewStorageFailure(err)
	}
	items, err := s.stores.Inbox.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewStorageFailure(err)
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &InboxPage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}, nil
}

const unreadCacheKeyPrefix = "inbox:unread:"

// GetUnreadCount returns the role's unread message count, served from
// the Redis counter cache when possible.
func (s *InboxService) GetUnreadCount(ctx context.Context, role domain.Role) (int, error) {
	if !role.Valid() {
		return 0, apperrors.NewInvalidRole(string(role))
	}

	key := unreadCacheKeyPrefix + string(role)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Int(); err == nil {
			return cached, nil
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("unread cache read failed", zap.String("role", string(role)), zap.Error(err))
		}
	}

	count, err := s.stores.Inbox.CountUnread(ctx, role)
	if err != nil {
		return 0, apperrors.NewStorageFailure(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, s.cfg.UnreadCacheTTL()).Err(); err != nil {
			s.logger.Warn("unread cache write failed", zap.String("role", string(role)), zap.Error(err))
		}
	}
	return count, nil
}

// MarkAsRead flips a message to read. Calling it on an already-read
// message is a no-op returning false, not an error.
func (s *InboxService) MarkAsRead(ctx context.Context, messageID, actorID string) (bool, error) {
	changed, err := s.stores.Inbox.MarkRead(ctx, messageID)
	if err != nil {
		return false, apperrors.NewStorageFailure(err)
	}
	if changed {
		msg, err := s.stores.Inbox.GetByID(ctx, messageID)
		if err == nil {
			s.invalidateUnread(ctx, msg.AssignedRole)
		}
		s.logger.Debug("inbox message read",
			zap.String("message_id", messageID),
			zap.String("actor_id", actorID))
		return true, nil
	}

	// Distinguish "already read" from "no such message".
	if _, err := s.stores.Inbox.GetByID(ctx, messageID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, apperrors.NewNotFound("inbox message", map[string]any{"message_id": messageID})
		}
		return false, apperrors.NewStorageFailure(err)
	}
	return false, nil
}

// Cleanup deletes messages that are read and older than the retention
// window. Application messages are preserved when configured so the
// original request records survive the sweep.
func (s *InboxService) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.cfg.RetentionWindow())
	var keep []domain.InboxMessageType
	if s.cfg.KeepApplications {
		keep = append(keep, domain.MessageTypeApplication)
	}

	deleted, err := s.stores.Inbox.DeleteReadBefore(ctx, cutoff, keep)
	if err != nil {
		return 0, apperrors.NewStorageFailure(err)
	}
	if deleted > 0 {
		s.logger.Info("inbox cleanup", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}

// RegisterCacheInvalidation subscribes to transfer events so unread
// counters never serve a role's stale count after a hand-off.
func (s *InboxService) RegisterCacheInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil || s.cache == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketTransferred, func(ctx context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.TicketTransferredPayload); ok {
			s.invalidateUnread(ctx, payload.FromRole, payload.ToRole)
		}
		return nil
	})
	dispatcher.Subscribe(events.EventTicketAssigned, func(ctx context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.TicketAssignedPayload); ok {
			s.invalidateUnread(ctx, payload.Role)
		}
		return nil
	})
}

func (s *InboxService) invalidateUnread(ctx context.Context, roles ...domain.Role) {
	if s.cache == nil {
		return
	}
	for _, role := range roles {
		if role == "" {
			continue
		}
		if err := s.cache.Del(ctx, unreadCacheKeyPrefix+string(role)).Err(); err != nil {
			s.logger.Warn("unread cache invalidation failed", zap.String("role", string(role)), zap.Error(err))
		}
	}
}
