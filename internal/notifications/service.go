package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/pagination"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

// Service defines notification list/read operations for the caller's inbox.
type Service interface {
	List(ctx context.Context, actor types.Actor, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, actor types.Actor, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, actor types.Actor) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

// scopeFor maps an actor onto the inbox it reads. Dispatchers and admins
// share the dispatcher inbox; carriers and shippers read their company's.
func scopeFor(actor types.Actor) (recipientScope, error) {
	switch actor.Role {
	case enums.ActorRoleDispatcher, enums.ActorRoleAdmin:
		return recipientScope{Role: enums.ActorRoleDispatcher}, nil
	case enums.ActorRoleCarrier, enums.ActorRoleShipper:
		if actor.CompanyID == nil || *actor.CompanyID == uuid.Nil {
			return recipientScope{}, pkgerrors.New(pkgerrors.CodeValidation, "company id required")
		}
		company := *actor.CompanyID
		return recipientScope{Role: actor.Role, RecipientID: &company}, nil
	case enums.ActorRoleDriver:
		user := actor.UserID
		return recipientScope{Role: enums.ActorRoleDriver, RecipientID: &user}, nil
	}
	return recipientScope{}, pkgerrors.New(pkgerrors.CodeForbidden, "role has no notification inbox")
}

func (s *service) List(ctx context.Context, actor types.Actor, params ListParams) (*ListResult, error) {
	scope, err := scopeFor(actor)
	if err != nil {
		return nil, err
	}

	query := listNotificationsParams{
		Scope:      scope,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	items, cursor := pagination.Page(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	if items == nil {
		items = []models.Notification{}
	}
	return &ListResult{
		Items:  items,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, actor types.Actor, notificationID uuid.UUID) error {
	scope, err := scopeFor(actor)
	if err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, scope, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, actor types.Actor) (int64, error) {
	scope, err := scopeFor(actor)
	if err != nil {
		return 0, err
	}

	count, err := s.repo.MarkAllRead(ctx, scope, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
