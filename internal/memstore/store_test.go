package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/offnote/internal/apperr"
	"github.com/starford/offnote/internal/models"
)

func clockStore(start time.Time) *Store {
	s := New()
	cur := start
	s.now = func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
	return s
}

func TestCreateStampsServerTime(t *testing.T) {
	s := clockStore(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	client := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := s.Create(context.Background(), models.RemoteNote{ID: "a", Title: "T", UpdatedAt: client})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.UpdatedAt.Equal(client) {
		t.Error("server must stamp its own time on accept")
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Create(ctx, models.RemoteNote{ID: "a"})
	if _, err := s.Create(ctx, models.RemoteNote{ID: "a"}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdate(t *testing.T) {
	s := clockStore(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()
	created, _ := s.Create(ctx, models.RemoteNote{ID: "a", Title: "v1"})

	updated, err := s.Update(ctx, models.RemoteNote{ID: "a", Title: "v2", Content: "c"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "v2" || updated.Content != "c" {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Error("update must advance updatedAt")
	}

	if _, err := s.Update(ctx, models.RemoteNote{ID: "ghost"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update missing err = %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := clockStore(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()
	_, _ = s.Create(ctx, models.RemoteNote{ID: "first"})
	_, _ = s.Create(ctx, models.RemoteNote{ID: "second"})
	_, _ = s.Update(ctx, models.RemoteNote{ID: "first", Title: "touched"})

	notes, _ := s.List(ctx)
	if len(notes) != 2 || notes[0].ID != "first" || notes[1].ID != "second" {
		t.Errorf("order = %+v", notes)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Create(ctx, models.RemoteNote{ID: "a"})

	ok, _ := s.Delete(ctx, "a")
	if !ok {
		t.Error("delete existing should report true")
	}
	ok, _ = s.Delete(ctx, "a")
	if ok {
		t.Error("delete missing should report false")
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
}
