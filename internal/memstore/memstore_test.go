package memstore

import (
	"context"
	"errors"
	"testing"

	"tally/internal/core"
	"tally/internal/store"
)

var col = store.Collection{Kind: core.KindExpense, OwnerID: "u1"}

func TestStore_CreateAssignsIDsAndPreservesOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	id1, err := s.Create(ctx, col, core.Record{Name: "first"})
	if err != nil || id1 == "" {
		t.Fatalf("Create = %q, %v", id1, err)
	}
	id2, _ := s.Create(ctx, col, core.Record{Name: "second"})
	if id1 == id2 {
		t.Fatal("ids must be unique")
	}

	all, err := s.ReadAll(ctx, col)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(all) != 2 || all[0].Name != "first" || all[1].Name != "second" {
		t.Errorf("ReadAll = %+v, want insertion order", all)
	}
}

func TestStore_CollectionsAreIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()
	other := store.Collection{Kind: core.KindSale, OwnerID: "u1"}

	_, _ = s.Create(ctx, col, core.Record{Name: "expense"})
	_, _ = s.Create(ctx, other, core.Record{Name: "sale"})

	sales, _ := s.ReadAll(ctx, other)
	if len(sales) != 1 || sales[0].Name != "sale" {
		t.Errorf("sales collection = %+v", sales)
	}
}

func TestStore_GetAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, _ := s.Create(ctx, col, core.Record{Name: "target"})

	got, err := s.Get(ctx, col, id)
	if err != nil || got.Name != "target" {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	if err := s.Delete(ctx, col, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, col, id); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("Get after delete = %v, want ErrRecordNotFound", err)
	}
	if err := s.Delete(ctx, col, id); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("Delete of unknown id = %v, want ErrRecordNotFound", err)
	}
}

func TestStore_DeleteAll(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Create(ctx, col, core.Record{Name: "a"})
	_, _ = s.Create(ctx, col, core.Record{Name: "b"})

	if err := s.DeleteAll(ctx, col); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	all, _ := s.ReadAll(ctx, col)
	if len(all) != 0 {
		t.Errorf("collection not empty after DeleteAll: %+v", all)
	}
}

func TestStore_FailNextCreates(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	s.FailNextCreates(1, boom)

	if _, err := s.Create(ctx, col, core.Record{Name: "x"}); !errors.Is(err, boom) {
		t.Fatalf("armed Create = %v, want boom", err)
	}
	if _, err := s.Create(ctx, col, core.Record{Name: "y"}); err != nil {
		t.Fatalf("second Create should succeed, got %v", err)
	}
}
