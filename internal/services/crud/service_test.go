package crud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/asakaida/commerce-api/internal/repositories/memory"
	"github.com/asakaida/commerce-api/internal/services/metadata"
	"github.com/asakaida/commerce-api/internal/services/serializer"
)

var fixedNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *metadata.Registry, *memory.EntityRepository) {
	t.Helper()

	registry, err := metadata.NewDefaultRegistry()
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	repo := memory.NewEntityRepository()

	product, _ := registry.Resolve("product")
	category, _ := registry.Resolve("category")
	pref, _ := registry.Resolve("pref")
	repo.Seed(product,
		entities.Record{"id": int64(1), "name": "Tシャツ", "del_flg": int64(0)},
		entities.Record{"id": int64(2), "name": "マグカップ", "del_flg": int64(0)},
	)
	repo.Seed(category, entities.Record{"id": int64(5), "name": "雑貨", "del_flg": int64(0)})
	repo.Seed(pref, entities.Record{"id": int64(13), "name": "東京都", "rank": int64(13)})

	svc := NewService(repo, serializer.NewSerializer(registry, repo))
	svc.now = func() time.Time { return fixedNow }
	return svc, registry, repo
}

func resolve(t *testing.T, registry *metadata.Registry, table string) *entities.Descriptor {
	t.Helper()

	desc, err := registry.Resolve(table)
	if err != nil {
		t.Fatalf("failed to resolve %s: %v", table, err)
	}
	return desc
}

func TestService_List(t *testing.T) {
	svc, registry, _ := setup(t)
	ctx := context.Background()

	objs, err := svc.List(ctx, resolve(t, registry, "product"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("expected 2 products, got %d", len(objs))
	}
	if objs[0]["name"] != "Tシャツ" {
		t.Errorf("first product = %v", objs[0])
	}

	empty, err := svc.List(ctx, resolve(t, registry, "news"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", empty)
	}
}

func TestService_Get(t *testing.T) {
	svc, registry, _ := setup(t)
	ctx := context.Background()
	product := resolve(t, registry, "product")

	tests := []struct {
		name     string
		desc     *entities.Descriptor
		key      []string
		wantNil  bool
		wantName string
		wantErr  error
	}{
		{name: "hit", desc: product, key: []string{"1"}, wantName: "Tシャツ"},
		{name: "miss", desc: product, key: []string{"99"}, wantNil: true},
		{name: "non-numeric id", desc: product, key: []string{"abc"}, wantNil: true},
		{name: "composite table by single id", desc: resolve(t, registry, "product_category"), key: []string{"1"}, wantErr: ErrKeyShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := svc.Get(ctx, tt.desc, tt.key...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if obj != nil {
					t.Errorf("expected nil, got %v", obj)
				}
				return
			}
			if obj["name"] != tt.wantName {
				t.Errorf("name = %v, want %s", obj["name"], tt.wantName)
			}
		})
	}
}

func TestService_Create(t *testing.T) {
	svc, registry, repo := setup(t)
	ctx := context.Background()

	t.Run("generated id and managed fields", func(t *testing.T) {
		customer := resolve(t, registry, "customer")
		key, err := svc.Create(ctx, customer, map[string]interface{}{
			"name01":      "山田",
			"pref":        float64(13),
			"create_date": "2000-01-01",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key.String() != "1" {
			t.Errorf("key = %s, want 1", key)
		}

		rec, _ := repo.FindByKey(ctx, customer, key)
		if rec["create_date"] != fixedNow || rec["update_date"] != fixedNow {
			t.Errorf("timestamps = %v / %v, want %v", rec["create_date"], rec["update_date"], fixedNow)
		}
		if rec["del_flg"] != int64(0) {
			t.Errorf("del_flg = %v, want 0", rec["del_flg"])
		}
	})

	t.Run("composite key", func(t *testing.T) {
		pc := resolve(t, registry, "product_category")
		key, err := svc.Create(ctx, pc, map[string]interface{}{"product_id": float64(1), "category_id": float64(5)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key.String() != "1/5" {
			t.Errorf("key = %s, want 1/5", key)
		}
	})

	t.Run("composite key part missing", func(t *testing.T) {
		pc := resolve(t, registry, "product_category")
		if _, err := svc.Create(ctx, pc, map[string]interface{}{"product_id": float64(2)}); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("dangling reference", func(t *testing.T) {
		pc := resolve(t, registry, "product_category")
		if _, err := svc.Create(ctx, pc, map[string]interface{}{"product_id": float64(1), "category_id": float64(404)}); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("duplicate composite key", func(t *testing.T) {
		pc := resolve(t, registry, "product_category")
		if _, err := svc.Create(ctx, pc, map[string]interface{}{"product_id": float64(1), "category_id": float64(5)}); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

func TestService_Update(t *testing.T) {
	svc, registry, repo := setup(t)
	ctx := context.Background()
	product := resolve(t, registry, "product")

	input := map[string]interface{}{"name": "ポロシャツ", "id": float64(77)}
	for i := 0; i < 2; i++ {
		if err := svc.Update(ctx, product, []string{"1"}, input); err != nil {
			t.Fatalf("update %d: unexpected error: %v", i, err)
		}
	}

	rec, _ := repo.FindByKey(ctx, product, entities.Key{int64(1)})
	if rec["name"] != "ポロシャツ" {
		t.Errorf("name = %v, want ポロシャツ", rec["name"])
	}
	if rec["id"] != int64(1) {
		t.Errorf("id = %v, want 1", rec["id"])
	}
	if rec["update_date"] != fixedNow {
		t.Errorf("update_date = %v, want %v", rec["update_date"], fixedNow)
	}

	if err := svc.Update(ctx, product, []string{"99"}, input); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Update(ctx, product, []string{"1"}, map[string]interface{}{"status": "public"}); err == nil {
		t.Error("expected coercion error, got nil")
	}
}

func TestService_Delete(t *testing.T) {
	svc, registry, repo := setup(t)
	ctx := context.Background()

	t.Run("soft delete", func(t *testing.T) {
		product := resolve(t, registry, "product")
		if err := svc.Delete(ctx, product, []string{"2"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rec, _ := repo.FindByKey(ctx, product, entities.Key{int64(2)})
		if rec["del_flg"] != int64(1) {
			t.Errorf("del_flg = %v, want 1", rec["del_flg"])
		}
	})

	t.Run("table without soft-delete flag", func(t *testing.T) {
		pref := resolve(t, registry, "pref")
		err := svc.Delete(ctx, pref, []string{"13"})
		if !errors.Is(err, ErrSoftDeleteUnsupported) {
			t.Fatalf("expected ErrSoftDeleteUnsupported, got %v", err)
		}
		rec, _ := repo.FindByKey(ctx, pref, entities.Key{int64(13)})
		if rec == nil || rec["name"] != "東京都" {
			t.Errorf("row changed: %v", rec)
		}
	})

	t.Run("missing row", func(t *testing.T) {
		product := resolve(t, registry, "product")
		if err := svc.Delete(ctx, product, []string{"99"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
