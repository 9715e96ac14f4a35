package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/pharmapet/pharmapet/internal/core"
)

func TestContactCRUD(t *testing.T) {
	store := NewContactStore(openTestDB(t))
	ctx := context.Background()

	c := &core.HealthContact{Name: "Dr. Smith", Email: "smith@example.com", Role: "Doctor"}
	if err := store.Create(ctx, c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}

	got, err := store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "smith@example.com" {
		t.Errorf("email = %q", got.Email)
	}

	got.Role = "Cardiologist"
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := store.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.GetByID(ctx, c.ID); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("GetByID after delete error = %v", err)
	}
}

func TestContactsSortedByName(t *testing.T) {
	store := NewContactStore(openTestDB(t))
	ctx := context.Background()

	for _, name := range []string{"Zoe", "Alex", "Mia"} {
		if err := store.Create(ctx, &core.HealthContact{Name: name, Email: name + "@example.com"}); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	contacts, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}

	want := []string{"Alex", "Mia", "Zoe"}
	for i, w := range want {
		if contacts[i].Name != w {
			t.Errorf("contacts[%d] = %q, want %q", i, contacts[i].Name, w)
		}
	}
}
