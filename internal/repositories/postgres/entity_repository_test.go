package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/asakaida/commerce-api/internal/services/metadata"
)

func TestEntityRepository_CRUD(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	registry, err := metadata.NewDefaultRegistry()
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	product, _ := registry.Resolve("product")

	repo := NewPostgresEntityRepository(db)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	var productID int64

	t.Run("正常系: 商品の作成", func(t *testing.T) {
		rec := entities.Record{
			"name":        "Tシャツ",
			"status":      int64(1),
			"create_date": now,
			"update_date": now,
			"del_flg":     int64(0),
		}
		if err := repo.Insert(ctx, product, rec); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		id, ok := rec["id"].(int64)
		if !ok || id == 0 {
			t.Fatalf("Expected generated id, got %v", rec["id"])
		}
		productID = id
	})

	t.Run("正常系: キーで取得", func(t *testing.T) {
		got, err := repo.FindByKey(ctx, product, entities.Key{productID})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if got == nil {
			t.Fatal("Expected record, got nil")
		}
		if got["name"] != "Tシャツ" {
			t.Errorf("Expected name Tシャツ, got %v", got["name"])
		}
		if got["note"] != nil {
			t.Errorf("Expected NULL note to be nil, got %v", got["note"])
		}
	})

	t.Run("正常系: 複数キーで取得", func(t *testing.T) {
		got, err := repo.FindByKeys(ctx, product, []entities.Key{{productID}, {int64(999999)}})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(got) != 1 || got[0]["id"] != productID {
			t.Errorf("Expected only product %d, got %v", productID, got)
		}
	})

	t.Run("正常系: 存在しないキー", func(t *testing.T) {
		got, err := repo.FindByKey(ctx, product, entities.Key{int64(999999)})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil, got %v", got)
		}
	})

	t.Run("正常系: 更新", func(t *testing.T) {
		got, _ := repo.FindByKey(ctx, product, entities.Key{productID})
		got["name"] = "ポロシャツ"
		got["del_flg"] = int64(1)

		if err := repo.Update(ctx, product, entities.Key{productID}, got); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		updated, _ := repo.FindByKey(ctx, product, entities.Key{productID})
		if updated["name"] != "ポロシャツ" || updated["del_flg"] != int64(1) {
			t.Errorf("Expected updated row, got %v", updated)
		}
	})

	t.Run("異常系: 存在しない行の更新", func(t *testing.T) {
		rec := entities.Record{"name": "x", "create_date": now, "update_date": now, "del_flg": int64(0)}
		if err := repo.Update(ctx, product, entities.Key{int64(999999)}, rec); err == nil {
			t.Error("Expected error, got nil")
		}
	})

	t.Run("正常系: 一覧", func(t *testing.T) {
		rows, err := repo.FindAll(ctx, product)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(rows) != 1 {
			t.Errorf("Expected 1 row, got %d", len(rows))
		}
	})
}

func TestEntityRepository_CompositeKey(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	registry, err := metadata.NewDefaultRegistry()
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	product, _ := registry.Resolve("product")
	category, _ := registry.Resolve("category")
	productCategory, _ := registry.Resolve("product_category")

	repo := NewPostgresEntityRepository(db)
	ctx := context.Background()
	now := time.Now()

	p := entities.Record{"name": "p", "create_date": now, "update_date": now, "del_flg": int64(0)}
	c := entities.Record{"name": "c", "create_date": now, "update_date": now, "del_flg": int64(0)}
	if err := repo.Insert(ctx, product, p); err != nil {
		t.Fatalf("Failed to insert product: %v", err)
	}
	if err := repo.Insert(ctx, category, c); err != nil {
		t.Fatalf("Failed to insert category: %v", err)
	}

	link := entities.Record{"product_id": p["id"], "category_id": c["id"], "rank": int64(1)}

	t.Run("正常系: 複合キーの作成", func(t *testing.T) {
		if err := repo.Insert(ctx, productCategory, link); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	})

	t.Run("異常系: 重複キー", func(t *testing.T) {
		if err := repo.Insert(ctx, productCategory, link.Clone()); err == nil {
			t.Error("Expected duplicate key error, got nil")
		}
	})

	t.Run("正常系: 複合キーで取得", func(t *testing.T) {
		got, err := repo.FindByKey(ctx, productCategory, entities.Key{p["id"], c["id"]})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if got == nil || got["rank"] != int64(1) {
			t.Errorf("Expected linked row, got %v", got)
		}
	})

	t.Run("異常系: キーの形が不正", func(t *testing.T) {
		if _, err := repo.FindByKey(ctx, productCategory, entities.Key{p["id"]}); err == nil {
			t.Error("Expected error, got nil")
		}
	})
}
