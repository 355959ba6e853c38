package repository

import (
	"context"
	"testing"

	"glowmarket/internal/domain"

	"github.com/google/uuid"
)

func TestFindByIDs(t *testing.T) {
	repo := NewItemRepository(testDB)
	ctx := context.Background()

	product := insertTestItem(t, domain.ItemTypeProduct, 14.00, 6, true)
	svc := insertTestItem(t, domain.ItemTypeService, 45.00, 0, true)
	missing := uuid.New()

	items, err := repo.FindByIDs(ctx, []uuid.UUID{product, svc, missing})
	if err != nil {
		t.Fatalf("FindByIDs failed: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if _, ok := items[missing]; ok {
		t.Error("missing ID must be absent from the result map")
	}
	if items[product].Type != domain.ItemTypeProduct || items[product].Stock != 6 {
		t.Errorf("unexpected product: %+v", items[product])
	}
	if items[svc].Type != domain.ItemTypeService {
		t.Errorf("unexpected service: %+v", items[svc])
	}
}

func TestFindByIDsEmptyInput(t *testing.T) {
	repo := NewItemRepository(testDB)

	items, err := repo.FindByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("FindByIDs failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty map, got %d items", len(items))
	}
}

func TestFindByID(t *testing.T) {
	repo := NewItemRepository(testDB)
	ctx := context.Background()

	id := insertTestItem(t, domain.ItemTypeProduct, 14.00, 6, true)

	item, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if item.ID != id || item.Price != 14.00 {
		t.Errorf("unexpected item: %+v", item)
	}

	if _, err := repo.FindByID(ctx, uuid.New()); err != ErrItemNotFound {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}
