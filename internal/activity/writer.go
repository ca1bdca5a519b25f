package activity

import (
	"context"
	"errors"

	"github.com/anonto42/nano-midea/notifier/internal/auth"
	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/internal/notifications"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"github.com/anonto42/nano-midea/notifier/pkg/logger"
	"github.com/anonto42/nano-midea/notifier/pkg/metrics"
)

type Writer struct {
	store     repositories.Store
	publisher Publisher
	metrics   *metrics.Metrics
	logg      *logger.Logger
}

// NewWriter creates a Writer. publisher and m may be nil.
func NewWriter(store repositories.Store, publisher Publisher, m *metrics.Metrics, logg *logger.Logger) *Writer {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Writer{store: store, publisher: publisher, metrics: m, logg: logg}
}

// Apply runs action on behalf of principal. The cause row and its notification
// commit together; subscribers hear about the notification only after commit.
func (w *Writer) Apply(ctx context.Context, principal auth.Principal, action Action) (Result, error) {
	actorID, ok := auth.UserID(principal)
	if !ok {
		return Result{}, pkgerrors.New(pkgerrors.CodeAuthenticationFailed, "authentication required")
	}
	ctx = w.logg.WithUserID(ctx, actorID)

	var (
		res   Result
		event *Committed
		err   error
	)
	switch a := action.(type) {
	case ToggleLike:
		res, event, err = w.toggleLike(ctx, actorID, a)
	case ToggleFollow:
		res, event, err = w.toggleFollow(ctx, actorID, a)
	case CreatePost:
		res, event, err = w.createPost(ctx, actorID, a)
	default:
		return Result{}, pkgerrors.New(pkgerrors.CodeInvalidOperation, "unsupported action")
	}

	if err != nil {
		err = w.classify(ctx, err)
		w.metrics.IncAction(action.kind(), "error")
		return Result{}, err
	}
	w.metrics.IncAction(action.kind(), string(res.Outcome))

	if event != nil {
		res.Notification = event.Notification
		w.metrics.IncNotification(string(event.Notification.Type))
		if w.publisher != nil {
			w.publisher.OnCommitted(*event)
		}
	}
	return res, nil
}

func (w *Writer) toggleLike(ctx context.Context, actorID string, a ToggleLike) (Result, *Committed, error) {
	var (
		res   Result
		event *Committed
	)
	err := w.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.Store) error {
		res, event = Result{}, nil

		post, err := tx.FindPostByID(ctx, a.PostID)
		if err != nil {
			return notFound(err, "post not found")
		}
		res.Post = post

		_, err = tx.FindLike(ctx, actorID, post.ID)
		switch {
		case err == nil:
			if err := tx.DeleteLike(ctx, actorID, post.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
			res.Outcome = OutcomeRemoved
			return nil
		case !errors.Is(err, repositories.ErrNotFound):
			return err
		}

		if err := tx.CreateLike(ctx, &models.Like{UserID: actorID, PostID: post.ID}); err != nil {
			return err
		}
		res.Outcome = OutcomeCreated
		event, err = w.notify(ctx, tx, notifications.Like{ActorID: actorID, Post: *post}, post)
		return err
	})
	if errors.Is(err, repositories.ErrDuplicate) {
		w.logg.Debug(ctx, "like already recorded by a concurrent request")
		return Result{Outcome: OutcomeConflict, Post: res.Post}, nil, nil
	}
	return res, event, err
}

func (w *Writer) toggleFollow(ctx context.Context, actorID string, a ToggleFollow) (Result, *Committed, error) {
	var (
		res   Result
		event *Committed
	)
	err := w.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.Store) error {
		res, event = Result{}, nil

		target, err := findTarget(ctx, tx, a)
		if err != nil {
			return notFound(err, "user not found")
		}
		if target.ID == actorID {
			return pkgerrors.New(pkgerrors.CodeInvalidOperation, "you cannot follow yourself")
		}
		res.Target = target

		_, err = tx.FindFollow(ctx, actorID, target.ID)
		switch {
		case err == nil:
			if err := tx.DeleteFollow(ctx, actorID, target.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
			res.Outcome = OutcomeRemoved
			return nil
		case !errors.Is(err, repositories.ErrNotFound):
			return err
		}

		if err := tx.CreateFollow(ctx, &models.Follow{FollowerID: actorID, FollowingID: target.ID}); err != nil {
			return err
		}
		res.Outcome = OutcomeCreated
		event, err = w.notify(ctx, tx, notifications.Follow{ActorID: actorID, Target: *target}, nil)
		return err
	})
	if errors.Is(err, repositories.ErrDuplicate) {
		w.logg.Debug(ctx, "follow already recorded by a concurrent request")
		return Result{Outcome: OutcomeConflict, Target: res.Target}, nil, nil
	}
	return res, event, err
}

func findTarget(ctx context.Context, tx repositories.Store, a ToggleFollow) (*models.User, error) {
	switch {
	case a.UserID != "":
		return tx.FindUserByID(ctx, a.UserID)
	case a.Username != "":
		return tx.FindUserByUsername(ctx, a.Username)
	}
	return nil, repositories.ErrNotFound
}

func (w *Writer) createPost(ctx context.Context, actorID string, a CreatePost) (Result, *Committed, error) {
	refs := 0
	for _, id := range []string{a.ParentID, a.RepostID, a.QuoteID} {
		if id != "" {
			refs++
		}
	}
	if refs > 1 {
		return Result{}, nil, pkgerrors.New(pkgerrors.CodeInvalidOperation,
			"a post can reference at most one of parent, repost or quote")
	}
	if a.Content == "" && a.RepostID == "" {
		return Result{}, nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "post content is required")
	}

	var (
		res   Result
		event *Committed
	)
	err := w.store.RunAtomic(ctx, func(ctx context.Context, tx repositories.Store) error {
		res, event = Result{}, nil

		var referenced *models.Post
		if refID := firstNonEmpty(a.ParentID, a.RepostID, a.QuoteID); refID != "" {
			p, err := tx.FindPostByID(ctx, refID)
			if err != nil {
				return notFound(err, "referenced post not found")
			}
			referenced = p
		}

		post := &models.Post{
			AuthorID: actorID,
			Content:  a.Content,
			ParentID: models.StringPtr(a.ParentID),
			RepostID: models.StringPtr(a.RepostID),
			QuoteID:  models.StringPtr(a.QuoteID),
		}
		if err := tx.CreatePost(ctx, post); err != nil {
			return err
		}
		res.Outcome = OutcomeCreated
		res.Post = post

		action := notifications.CreatePost{ActorID: actorID, Post: *post}
		subject := post
		switch {
		case a.ParentID != "":
			action.Parent = referenced
		case a.RepostID != "":
			action.Repost = referenced
			subject = referenced
		case a.QuoteID != "":
			action.Quote = referenced
		}

		var err error
		event, err = w.notify(ctx, tx, action, subject)
		return err
	})
	return res, event, err
}

// notify evaluates the rules for action and inserts the resulting notification
// through tx. subject is the post the notification points at, if any.
func (w *Writer) notify(ctx context.Context, tx repositories.Store, action notifications.Action, subject *models.Post) (*Committed, error) {
	intent, ok := notifications.Decide(action)
	if !ok {
		return nil, nil
	}

	actor, err := tx.FindUserByID(ctx, intent.ActorID)
	if err != nil {
		return nil, notFound(err, "actor not found")
	}

	n := intent.Notification()
	if err := tx.CreateNotification(ctx, n); err != nil {
		return nil, err
	}

	event := &Committed{Notification: n, Actor: actor}
	if intent.PostID != nil {
		event.Post = subject
	}
	return event, nil
}

// classify gives every error leaving Apply a code. Coded errors pass through;
// anything else is a store failure.
func (w *Writer) classify(ctx context.Context, err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	w.logg.Error(ctx, "activity transaction failed", err)
	return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "store unavailable")
}

func notFound(err error, msg string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, msg)
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
