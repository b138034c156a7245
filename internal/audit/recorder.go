package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/meridian-hq/meridian-admin/internal/shared"
)

// Sink persists audit entries. Append-only: the contract offers no
// update or delete.
type Sink interface {
	Insert(ctx context.Context, entry Entry) error
}

// Recorder appends audit entries for every mutating action. Callers tie
// recording to successful completion of the underlying mutation; a
// failed write here is logged and never fails the triggering request.
type Recorder struct {
	sink   Sink
	logger *slog.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{sink: sink, logger: logger}
}

// Record redacts snapshots, fills actor and request metadata from the
// context when absent, and persists the entry.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if r == nil || r.sink == nil {
		return errors.New("audit: recorder not configured")
	}
	if entry.Action == "" || entry.Resource == "" {
		return errors.New("audit: entry requires action and resource")
	}
	entry.OldValues = Redact(entry.OldValues)
	entry.NewValues = Redact(entry.NewValues)
	if entry.ActorID == nil {
		if principal := shared.PrincipalFromContext(ctx); principal != nil {
			id := principal.UserID
			entry.ActorID = &id
		}
	}
	if entry.IP == "" || entry.UserAgent == "" {
		meta := shared.RequestMetaFromContext(ctx)
		if entry.IP == "" {
			entry.IP = meta.IP
		}
		if entry.UserAgent == "" {
			entry.UserAgent = meta.UserAgent
		}
	}
	return r.sink.Insert(ctx, entry)
}

// Login records a successful authentication. Login and logout are
// explicit calls, never inferred from the request shape.
func (r *Recorder) Login(ctx context.Context, userID int64) {
	r.record(ctx, Entry{ActorID: &userID, Action: ActionLogin, Resource: "users", ResourceID: &userID})
}

// Logout records a session termination.
func (r *Recorder) Logout(ctx context.Context, userID int64) {
	r.record(ctx, Entry{ActorID: &userID, Action: ActionLogout, Resource: "users", ResourceID: &userID})
}

// Created records a resource creation.
func (r *Recorder) Created(ctx context.Context, resource string, resourceID int64, newValues map[string]any) {
	r.record(ctx, Entry{Action: ActionCreate, Resource: resource, ResourceID: &resourceID, NewValues: newValues})
}

// Updated records a resource mutation with before/after snapshots.
func (r *Recorder) Updated(ctx context.Context, resource string, resourceID int64, oldValues, newValues map[string]any) {
	r.record(ctx, Entry{Action: ActionUpdate, Resource: resource, ResourceID: &resourceID, OldValues: oldValues, NewValues: newValues})
}

// Deleted records a resource removal with its final snapshot.
func (r *Recorder) Deleted(ctx context.Context, resource string, resourceID int64, oldValues map[string]any) {
	r.record(ctx, Entry{Action: ActionDelete, Resource: resource, ResourceID: &resourceID, OldValues: oldValues})
}

func (r *Recorder) record(ctx context.Context, entry Entry) {
	if err := r.Record(ctx, entry); err != nil {
		r.logger.Warn("audit record failed",
			slog.String("action", entry.Action),
			slog.String("resource", entry.Resource),
			slog.Any("error", err))
	}
}
