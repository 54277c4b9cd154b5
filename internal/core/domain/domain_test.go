package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCollectionKey(t *testing.T) {
	cases := map[string]string{
		"Rooms":              "rooms",
		"Lost & Found":       "lost_and_found",
		"Housekeeping Tasks": "housekeeping_tasks",
		"  Mini-Bar  Stock ": "mini_bar_stock",
		"":                   "",
	}
	for title, want := range cases {
		if got := CollectionKey(title); got != want {
			t.Errorf("CollectionKey(%q) = %q, want %q", title, got, want)
		}
	}
}

func TestColumnDefaultValue(t *testing.T) {
	now := time.Date(2026, 3, 9, 15, 4, 5, 0, time.UTC)
	if v := (Column{Type: ColumnNumber}).DefaultValue(now); v != float64(0) {
		t.Errorf("number default = %v", v)
	}
	if v := (Column{Type: ColumnDate}).DefaultValue(now); v != "2026-03-09" {
		t.Errorf("date default = %v", v)
	}
	if v := (Column{Type: ColumnText}).DefaultValue(now); v != "" {
		t.Errorf("text default = %v", v)
	}
	if v := (Column{Type: ColumnBoolean}).DefaultValue(now); v != "" {
		t.Errorf("boolean default = %v", v)
	}
}

func TestRecordMergeKeepsID(t *testing.T) {
	r := Record{"id": "a", "number": "101", "status": "Vacant"}
	merged := r.Merge(Record{"id": "b", "status": "Occupied"})
	if merged.ID() != "a" {
		t.Errorf("id overwritten: %v", merged.ID())
	}
	if merged["status"] != "Occupied" || merged["number"] != "101" {
		t.Errorf("unexpected merge result: %v", merged)
	}
	if r["status"] != "Vacant" {
		t.Errorf("merge mutated the receiver")
	}
}

func TestRecordNormalize(t *testing.T) {
	r, err := Record{"n": 3, "f": float32(1.5), "s": "x", "b": true, "z": nil, "id": 7}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r["n"] != float64(3) || r["f"] != float64(1.5) || r["id"] != "7" {
		t.Errorf("unexpected normalisation: %v", r)
	}

	_, err = Record{"nested": map[string]any{"a": 1}}.Normalize()
	if !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestClassifyAndUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{nil, KindNone},
		{&ValidationError{Fields: []string{"number"}}, KindValidation},
		{fmt.Errorf("update: %w", ErrNotFound), KindNotFound},
		{fmt.Errorf("%w: code 13", ErrPermissionDenied), KindPermissionDenied},
		{ErrSchemaMissing, KindSchemaMissing},
		{fmt.Errorf("%w: %w", ErrTransport, errors.New("dial tcp")), KindTransport},
		{ErrUnauthenticated, KindUnauthenticated},
		{errors.New("boom"), KindUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.kind {
			t.Errorf("Classify(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		msg := UserMessage(tc.err)
		if tc.err == nil && msg != "" {
			t.Errorf("expected empty message for nil error")
		}
		if tc.err != nil && msg == "" {
			t.Errorf("expected message for %v", tc.err)
		}
	}
}

func TestSessionContextKey(t *testing.T) {
	if k := (SessionContext{Identity: "a@hotel.test", DemoRole: "guest"}).Key(); k != "auth:a@hotel.test" {
		t.Errorf("identity must win over demo marker, got %q", k)
	}
	if k := (SessionContext{DemoRole: "guest"}).Key(); k != "demo:guest" {
		t.Errorf("unexpected demo key %q", k)
	}
	if (SessionContext{Identity: "a", DemoRole: "guest"}).Demo() {
		t.Errorf("authenticated session must not be demo")
	}
}

func TestModuleRegistryKeysUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Modules() {
		if seen[m.Key()] {
			t.Fatalf("duplicate collection key %q", m.Key())
		}
		seen[m.Key()] = true
		if m.Resource == "" {
			t.Errorf("module %q has no resource", m.Title)
		}
	}
	if m, ok := ModuleByKey("lost_and_found"); !ok || m.Collection != "" {
		t.Errorf("expected local-only lost_and_found module")
	}
}

func TestColumnParse(t *testing.T) {
	number := Column{Name: "floor", Type: ColumnNumber}
	if v, err := number.Parse(" 3 "); err != nil || v != float64(3) {
		t.Fatalf("number parse = %v, %v", v, err)
	}
	if _, err := number.Parse("three"); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}

	flag := Column{Name: "vip", Type: ColumnBoolean}
	if v, err := flag.Parse("true"); err != nil || v != true {
		t.Fatalf("boolean parse = %v, %v", v, err)
	}

	date := Column{Name: "check_in", Type: ColumnDate}
	if _, err := date.Parse("14/10/2026"); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected bad date rejected, got %v", err)
	}

	status := Column{Name: "status", Type: ColumnSelect, Options: []string{"Vacant", "Occupied"}}
	if _, err := status.Parse("Haunted"); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected option rejected, got %v", err)
	}
	if v, err := status.Parse("Vacant"); err != nil || v != "Vacant" {
		t.Fatalf("select parse = %v, %v", v, err)
	}
}
