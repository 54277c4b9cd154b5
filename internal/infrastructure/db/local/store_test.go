package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

func openRooms(t *testing.T, dir string, opts ports.StoreOptions) ports.RecordStore {
	t.Helper()
	s, err := NewOpener(dir, zerolog.Nop()).Open("rooms", opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := openRooms(t, t.TempDir(), ports.StoreOptions{})

	created, err := s.Create(ctx, domain.Record{"number": "101", "status": "Vacant"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := created.ID()
	if id == "" {
		t.Fatal("expected a generated id")
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID() != id || list[0]["number"] != "101" {
		t.Fatalf("unexpected list: %v", list)
	}

	if _, err := s.Update(ctx, id, domain.Record{"status": "Occupied"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, _ = s.List(ctx)
	if list[0]["status"] != "Occupied" || list[0]["number"] != "101" {
		t.Fatalf("update not merged: %v", list[0])
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ = s.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %v", list)
	}
}

func TestStore_UpdateMissingIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := openRooms(t, t.TempDir(), ports.StoreOptions{})
	if _, err := s.Create(ctx, domain.Record{"number": "101"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	before, _ := s.List(ctx)

	_, err := s.Update(ctx, "missing", domain.Record{"number": "999"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	after, _ := s.List(ctx)
	if len(after) != len(before) || after[0]["number"] != "101" {
		t.Fatalf("record set changed: before=%v after=%v", before, after)
	}
}

func TestStore_DeleteMissingIsNoop(t *testing.T) {
	s := openRooms(t, t.TempDir(), ports.StoreOptions{})
	if err := s.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestStore_KeepsInsertionOrderAndPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openRooms(t, dir, ports.StoreOptions{})
	for _, n := range []string{"103", "101", "102"} {
		if _, err := s.Create(ctx, domain.Record{"number": n}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	reopened := openRooms(t, dir, ports.StoreOptions{})
	list, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, n := range []string{"103", "101", "102"} {
		if list[i]["number"] != n {
			t.Fatalf("insertion order lost: %v", list)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "rooms.json")); err != nil {
		t.Fatalf("expected rooms.json: %v", err)
	}
}

func TestStore_KeepsProvidedIDAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := openRooms(t, t.TempDir(), ports.StoreOptions{})
	rec, err := s.Create(ctx, domain.Record{"id": "room-101", "number": "101"})
	if err != nil || rec.ID() != "room-101" {
		t.Fatalf("expected provided id, got %v %v", rec, err)
	}
	if _, err := s.Create(ctx, domain.Record{"id": "room-101"}); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
}

func TestStore_RejectsNonScalarValues(t *testing.T) {
	s := openRooms(t, t.TempDir(), ports.StoreOptions{})
	_, err := s.Create(context.Background(), domain.Record{"tags": []string{"a"}})
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestStore_OwnerScoped(t *testing.T) {
	dir := t.TempDir()
	s := openRooms(t, dir, ports.StoreOptions{OwnerScoped: true})
	alice := domain.ContextWithIdentity(context.Background(), "alice@hotel.test")
	bob := domain.ContextWithIdentity(context.Background(), "bob@hotel.test")

	rec, err := s.Create(alice, domain.Record{"request": "towels", "owner_id": "spoofed"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec[domain.FieldOwner] != "alice@hotel.test" {
		t.Fatalf("owner not stamped: %v", rec)
	}

	if list, _ := s.List(bob); len(list) != 0 {
		t.Fatalf("bob must not see alice's records: %v", list)
	}
	if _, err := s.Update(bob, rec.ID(), domain.Record{"request": "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign record, got %v", err)
	}
	updated, err := s.Update(alice, rec.ID(), domain.Record{"owner_id": "bob@hotel.test"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated[domain.FieldOwner] != "alice@hotel.test" {
		t.Fatalf("owner must not be patchable: %v", updated)
	}
}

func TestOpener_RejectsUnsafeKeys(t *testing.T) {
	o := NewOpener(t.TempDir(), zerolog.Nop())
	for _, key := range []string{"", "../etc", "Rooms", "a/b"} {
		if _, err := o.Open(key, ports.StoreOptions{}); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestStore_SubscribeIsNoop(t *testing.T) {
	s := openRooms(t, t.TempDir(), ports.StoreOptions{})
	unsubscribe := s.Subscribe(context.Background(), func(domain.ChangeEvent) { t.Fatal("must not be called") })
	unsubscribe()
	unsubscribe()
}
