package entities

import "testing"

func newProductCategoryDescriptor() *Descriptor {
	return &Descriptor{
		Name:     "product_category",
		SQLTable: "dtb_product_category",
		Fields: []*Field{
			{Name: "product_id", Column: "product_id", Kind: KindInt, Ref: &Ref{Table: "product", EmbedAs: "Product"}},
			{Name: "category_id", Column: "category_id", Kind: KindInt, Ref: &Ref{Table: "category", EmbedAs: "Category"}},
			{Name: "rank", Column: "rank", Kind: KindInt},
		},
		Key: []string{"product_id", "category_id"},
	}
}

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		desc    *Descriptor
		wantErr bool
	}{
		{
			name:    "valid composite key",
			desc:    newProductCategoryDescriptor(),
			wantErr: false,
		},
		{
			name:    "missing name",
			desc:    &Descriptor{SQLTable: "t", Fields: []*Field{{Name: "id", Column: "id"}}, Key: []string{"id"}},
			wantErr: true,
		},
		{
			name:    "missing key",
			desc:    &Descriptor{Name: "t", SQLTable: "t", Fields: []*Field{{Name: "id", Column: "id"}}},
			wantErr: true,
		},
		{
			name:    "undefined key field",
			desc:    &Descriptor{Name: "t", SQLTable: "t", Fields: []*Field{{Name: "id", Column: "id"}}, Key: []string{"uuid"}},
			wantErr: true,
		},
		{
			name: "duplicate field",
			desc: &Descriptor{Name: "t", SQLTable: "t", Fields: []*Field{
				{Name: "id", Column: "id"},
				{Name: "id", Column: "other_id"},
			}, Key: []string{"id"}},
			wantErr: true,
		},
		{
			name: "undefined soft-delete field",
			desc: &Descriptor{Name: "t", SQLTable: "t", Fields: []*Field{
				{Name: "id", Column: "id"},
			}, Key: []string{"id"}, SoftDeleteField: "del_flg"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Descriptor.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDescriptor_FieldForInput(t *testing.T) {
	desc := newProductCategoryDescriptor()
	if err := desc.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		input string
		want  string
	}{
		{input: "product_id", want: "product_id"},
		{input: "Product", want: "product_id"},
		{input: "Category", want: "category_id"},
		{input: "rank", want: "rank"},
		{input: "unknown", want: ""},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := desc.FieldForInput(tt.input)
			if tt.want == "" {
				if got != nil {
					t.Errorf("FieldForInput(%q) = %s, want nil", tt.input, got.Name)
				}
				return
			}
			if got == nil || got.Name != tt.want {
				t.Errorf("FieldForInput(%q) = %v, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestDescriptor_Scopes(t *testing.T) {
	desc := newProductCategoryDescriptor()

	if got := desc.ReadScope(); got != "product_category_read" {
		t.Errorf("ReadScope() = %s, want product_category_read", got)
	}
	if got := desc.WriteScope(); got != "product_category_read product_category_write" {
		t.Errorf("WriteScope() = %s", got)
	}
	if desc.SupportsSoftDelete() {
		t.Error("expected product_category not to support soft delete")
	}
	if !desc.HasCompositeKey() {
		t.Error("expected composite key")
	}
}

func TestDescriptor_ParseKey(t *testing.T) {
	desc := newProductCategoryDescriptor()
	if err := desc.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key, err := desc.ParseKey("1", "5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key[0] != int64(1) || key[1] != int64(5) {
		t.Errorf("ParseKey() = %v, want [1 5]", key)
	}
	if key.String() != "1/5" {
		t.Errorf("Key.String() = %s, want 1/5", key.String())
	}

	if _, err := desc.ParseKey("1"); err == nil {
		t.Error("expected error for wrong key shape")
	}
	if _, err := desc.ParseKey("1", "abc"); err == nil {
		t.Error("expected error for non-numeric key")
	}

	rec := Record{"product_id": int64(1), "category_id": int64(5), "rank": int64(0)}
	if !desc.Matches(rec, key) {
		t.Error("expected record to match key")
	}
	if desc.Matches(rec, Key{int64(1), int64(6)}) {
		t.Error("expected record not to match other key")
	}
}
