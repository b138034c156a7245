package audit

import (
	"context"
	"testing"

	"github.com/meridian-hq/meridian-admin/internal/shared"
)

type captureSink struct {
	entries []Entry
	err     error
}

func (s *captureSink) Insert(ctx context.Context, entry Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func TestRecordRedactsSensitiveKeys(t *testing.T) {
	sink := &captureSink{}
	recorder := NewRecorder(sink, nil)

	resourceID := int64(5)
	err := recorder.Record(context.Background(), Entry{
		Action:     ActionUpdate,
		Resource:   "users",
		ResourceID: &resourceID,
		OldValues:  map[string]any{"password": "old-secret", "name": "old"},
		NewValues:  map[string]any{"password": "secret123", "name": "new"},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(sink.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(sink.entries))
	}
	entry := sink.entries[0]
	if entry.NewValues["password"] != RedactedValue {
		t.Fatalf("expected new password redacted, got %v", entry.NewValues["password"])
	}
	if entry.NewValues["name"] != "new" {
		t.Fatalf("expected name untouched, got %v", entry.NewValues["name"])
	}
	if entry.OldValues["password"] != RedactedValue {
		t.Fatalf("expected old password redacted, got %v", entry.OldValues["password"])
	}
}

func TestRecordDefaultsActorFromContext(t *testing.T) {
	sink := &captureSink{}
	recorder := NewRecorder(sink, nil)

	ctx := shared.ContextWithPrincipal(context.Background(), &shared.Principal{UserID: 9})
	ctx = shared.ContextWithRequestMeta(ctx, shared.RequestMeta{IP: "10.0.0.9", UserAgent: "test-agent"})

	resourceID := int64(3)
	if err := recorder.Record(ctx, Entry{Action: ActionCreate, Resource: "roles", ResourceID: &resourceID}); err != nil {
		t.Fatalf("record: %v", err)
	}
	entry := sink.entries[0]
	if entry.ActorID == nil || *entry.ActorID != 9 {
		t.Fatalf("expected actor id 9, got %v", entry.ActorID)
	}
	if entry.IP != "10.0.0.9" || entry.UserAgent != "test-agent" {
		t.Fatalf("expected request meta filled, got %q %q", entry.IP, entry.UserAgent)
	}
}

func TestRecordSystemActionKeepsNilActor(t *testing.T) {
	sink := &captureSink{}
	recorder := NewRecorder(sink, nil)

	resourceID := int64(1)
	if err := recorder.Record(context.Background(), Entry{Action: ActionDelete, Resource: "sessions", ResourceID: &resourceID}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if sink.entries[0].ActorID != nil {
		t.Fatalf("expected nil actor for system action, got %v", sink.entries[0].ActorID)
	}
}

func TestRecordRequiresActionAndResource(t *testing.T) {
	recorder := NewRecorder(&captureSink{}, nil)
	if err := recorder.Record(context.Background(), Entry{Action: ActionCreate}); err == nil {
		t.Fatalf("expected error for missing resource")
	}
	if err := recorder.Record(context.Background(), Entry{Resource: "users"}); err == nil {
		t.Fatalf("expected error for missing action")
	}
}

func TestLoginWrapper(t *testing.T) {
	sink := &captureSink{}
	recorder := NewRecorder(sink, nil)

	recorder.Login(context.Background(), 4)
	if len(sink.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(sink.entries))
	}
	entry := sink.entries[0]
	if entry.Action != ActionLogin || entry.Resource != "users" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.ActorID == nil || *entry.ActorID != 4 {
		t.Fatalf("expected actor 4, got %v", entry.ActorID)
	}
}
