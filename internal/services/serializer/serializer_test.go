package serializer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/asakaida/commerce-api/internal/repositories/memory"
	"github.com/asakaida/commerce-api/internal/services/metadata"
)

func setup(t *testing.T) (*Serializer, *metadata.Registry, *memory.EntityRepository) {
	t.Helper()

	registry, err := metadata.NewDefaultRegistry()
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	repo := memory.NewEntityRepository()

	pref, _ := registry.Resolve("pref")
	repo.Seed(pref,
		entities.Record{"id": int64(13), "name": "東京都", "rank": int64(13)},
		entities.Record{"id": int64(27), "name": "大阪府", "rank": int64(27)},
	)

	return NewSerializer(registry, repo), registry, repo
}

func TestSerializer_ToPlainObject(t *testing.T) {
	s, registry, _ := setup(t)
	customer, _ := registry.Resolve("customer")
	ctx := context.Background()

	rec := entities.Record{"id": int64(1), "name01": "山田", "pref": int64(13), "sex": nil}

	obj, err := s.ToPlainObject(ctx, customer, rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obj["id"] != int64(1) || obj["name01"] != "山田" {
		t.Errorf("unexpected scalar fields: %v", obj)
	}

	embedded, ok := obj["Pref"].(map[string]interface{})
	if !ok {
		t.Fatalf("Pref = %T, want embedded object", obj["Pref"])
	}
	if embedded["name"] != "東京都" {
		t.Errorf("Pref.name = %v, want 東京都", embedded["name"])
	}

	if v, present := obj["Sex"]; !present || v != nil {
		t.Errorf("Sex = %v (present %v), want explicit null", v, present)
	}

	// Every field of the descriptor is present, even when unset
	for _, f := range customer.Fields {
		if _, present := obj[f.Name]; !present {
			t.Errorf("field %s missing from output", f.Name)
		}
	}
}

func TestSerializer_ToPlainObject_Nil(t *testing.T) {
	s, registry, _ := setup(t)
	product, _ := registry.Resolve("product")

	obj, err := s.ToPlainObject(context.Background(), product, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj != nil {
		t.Errorf("ToPlainObject(nil) = %v, want nil", obj)
	}
}

func TestSerializer_ToPlainObjects_Empty(t *testing.T) {
	s, registry, _ := setup(t)
	product, _ := registry.Resolve("product")

	objs, err := s.ToPlainObjects(context.Background(), product, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if objs == nil || len(objs) != 0 {
		t.Errorf("ToPlainObjects(nil) = %#v, want empty non-nil slice", objs)
	}
}

// countingRepository counts lookups of the wrapped repository
type countingRepository struct {
	*memory.EntityRepository
	findByKey  int
	findByKeys int
}

func (r *countingRepository) FindByKey(ctx context.Context, desc *entities.Descriptor, key entities.Key) (entities.Record, error) {
	r.findByKey++
	return r.EntityRepository.FindByKey(ctx, desc, key)
}

func (r *countingRepository) FindByKeys(ctx context.Context, desc *entities.Descriptor, keys []entities.Key) ([]entities.Record, error) {
	r.findByKeys++
	return r.EntityRepository.FindByKeys(ctx, desc, keys)
}

func TestSerializer_ToPlainObjects_LoadsReferencesOnce(t *testing.T) {
	_, registry, mem := setup(t)
	product, _ := registry.Resolve("product")
	category, _ := registry.Resolve("category")
	productCategory, _ := registry.Resolve("product_category")

	mem.Seed(product,
		entities.Record{"id": int64(1), "name": "Tシャツ"},
		entities.Record{"id": int64(2), "name": "パーカー"},
	)
	mem.Seed(category, entities.Record{"id": int64(5), "name": "トップス"})

	repo := &countingRepository{EntityRepository: mem}
	s := NewSerializer(registry, repo)

	recs := []entities.Record{
		{"product_id": int64(1), "category_id": int64(5), "rank": int64(1)},
		{"product_id": int64(2), "category_id": int64(5), "rank": int64(2)},
		{"product_id": int64(2), "category_id": int64(6), "rank": int64(3)},
	}

	objs, err := s.ToPlainObjects(context.Background(), productCategory, recs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One batch per embedded reference, never one lookup per row
	if repo.findByKeys != 2 || repo.findByKey != 0 {
		t.Errorf("lookups = %d batched, %d single; want 2 batched, 0 single", repo.findByKeys, repo.findByKey)
	}

	tests := []struct {
		name         string
		obj          map[string]interface{}
		wantProduct  interface{}
		wantCategory interface{}
	}{
		{name: "first row", obj: objs[0], wantProduct: "Tシャツ", wantCategory: "トップス"},
		{name: "shared category", obj: objs[1], wantProduct: "パーカー", wantCategory: "トップス"},
		{name: "dangling category", obj: objs[2], wantProduct: "パーカー", wantCategory: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := tt.obj["Product"].(map[string]interface{})
			if p["name"] != tt.wantProduct {
				t.Errorf("Product = %v, want name %v", tt.obj["Product"], tt.wantProduct)
			}

			if tt.wantCategory == nil {
				if tt.obj["Category"] != nil {
					t.Errorf("Category = %v, want null", tt.obj["Category"])
				}
				return
			}
			c, _ := tt.obj["Category"].(map[string]interface{})
			if c["name"] != tt.wantCategory {
				t.Errorf("Category = %v, want name %v", tt.obj["Category"], tt.wantCategory)
			}
		})
	}
}

func TestSerializer_ApplyFields(t *testing.T) {
	s, registry, _ := setup(t)
	customer, _ := registry.Resolve("customer")
	ctx := context.Background()

	tests := []struct {
		name    string
		input   map[string]interface{}
		check   func(t *testing.T, rec entities.Record)
		wantErr string
	}{
		{
			name:  "plain fields",
			input: map[string]interface{}{"name01": "鈴木", "point": float64(120)},
			check: func(t *testing.T, rec entities.Record) {
				if rec["name01"] != "鈴木" || rec["point"] != float64(120) {
					t.Errorf("unexpected record: %v", rec)
				}
			},
		},
		{
			name:  "reference as number",
			input: map[string]interface{}{"pref": float64(27)},
			check: func(t *testing.T, rec entities.Record) {
				if rec["pref"] != int64(27) {
					t.Errorf("pref = %v, want 27", rec["pref"])
				}
			},
		},
		{
			name:  "reference as numeric string",
			input: map[string]interface{}{"pref": "13"},
			check: func(t *testing.T, rec entities.Record) {
				if rec["pref"] != int64(13) {
					t.Errorf("pref = %v, want 13", rec["pref"])
				}
			},
		},
		{
			name:  "reference by embed alias",
			input: map[string]interface{}{"Pref": map[string]interface{}{"id": float64(13)}},
			check: func(t *testing.T, rec entities.Record) {
				if rec["pref"] != int64(13) {
					t.Errorf("pref = %v, want 13", rec["pref"])
				}
			},
		},
		{
			name:  "unknown keys, id and timestamps are ignored",
			input: map[string]interface{}{"id": float64(99), "create_date": "2000-01-01", "nickname": "x"},
			check: func(t *testing.T, rec entities.Record) {
				if rec["id"] != int64(1) {
					t.Errorf("id = %v, want 1", rec["id"])
				}
				if _, present := rec["create_date"]; present {
					t.Errorf("create_date was set: %v", rec["create_date"])
				}
				if _, present := rec["nickname"]; present {
					t.Error("unknown key was copied")
				}
			},
		},
		{
			name:  "null clears a reference",
			input: map[string]interface{}{"pref": nil},
			check: func(t *testing.T, rec entities.Record) {
				if v, present := rec["pref"]; !present || v != nil {
					t.Errorf("pref = %v, want nil", v)
				}
			},
		},
		{
			name:  "time field",
			input: map[string]interface{}{"birth": "1990-04-01"},
			check: func(t *testing.T, rec entities.Record) {
				birth, ok := rec["birth"].(time.Time)
				if !ok || birth.Year() != 1990 || birth.Month() != time.April {
					t.Errorf("birth = %v", rec["birth"])
				}
			},
		},
		{
			name:    "dangling reference",
			input:   map[string]interface{}{"pref": float64(99)},
			wantErr: "pref 99 does not exist",
		},
		{
			name:    "coercion failure",
			input:   map[string]interface{}{"point": "many"},
			wantErr: "invalid value for point",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := entities.Record{"id": int64(1)}
			err := s.ApplyFields(ctx, customer, rec, tt.input)

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("ApplyFields() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, rec)
		})
	}
}
