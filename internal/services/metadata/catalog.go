package metadata

import "github.com/asakaida/commerce-api/internal/entities"

// SoftDeleteField is the flag column marking a row as logically deleted
const SoftDeleteField = "del_flg"

// Catalog returns the descriptors of every table exposed by the API
func Catalog() []*entities.Descriptor {
	return []*entities.Descriptor{
		// Masters
		master("job", "mtb_job"),
		master("pref", "mtb_pref"),
		master("sex", "mtb_sex"),
		master("disp", "mtb_disp"),
		master("tag", "mtb_tag"),
		master("customer_status", "mtb_customer_status"),
		master("order_status", "mtb_order_status"),

		// Catalog
		{
			Name:     "news",
			SQLTable: "dtb_news",
			Fields: fields(
				serial("news_id"),
				column("date", "news_date", entities.KindTime),
				integer("rank"),
				column("title", "news_title", entities.KindString),
				column("comment", "news_comment", entities.KindString),
				column("url", "news_url", entities.KindString),
				column("select", "news_select", entities.KindInt),
				text("link_method"),
				timestamps(),
				delFlg(),
			),
			Key:             []string{"id"},
			SoftDeleteField: SoftDeleteField,
		},
		{
			Name:     "category",
			SQLTable: "dtb_category",
			Fields: fields(
				serial("category_id"),
				ref("parent_category_id", "category", "Parent"),
				column("name", "category_name", entities.KindString),
				integer("level"),
				integer("rank"),
				timestamps(),
				delFlg(),
			),
			Key:             []string{"id"},
			SoftDeleteField: SoftDeleteField,
		},
		{
			Name:     "product",
			SQLTable: "dtb_product",
			Fields: fields(
				serial("product_id"),
				text("name"),
				text("note"),
				text("description_list"),
				text("description_detail"),
				text("search_word"),
				text("free_area"),
				refColumn("status", "status", "disp", "Status"),
				timestamps(),
				delFlg(),
			),
			Key:             []string{"id"},
			SoftDeleteField: SoftDeleteField,
		},
		{
			Name:     "product_class",
			SQLTable: "dtb_product_class",
			Fields: fields(
				serial("product_class_id"),
				ref("product_id", "product", "Product"),
				column("code", "product_code", entities.KindString),
				decimal("stock"),
				integer("stock_unlimited"),
				decimal("sale_limit"),
				decimal("price01"),
				decimal("price02"),
				decimal("delivery_fee"),
				timestamps(),
				delFlg(),
			),
			Key:             []string{"id"},
			SoftDeleteField: SoftDeleteField,
		},
		{
			Name:     "product_image",
			SQLTable: "dtb_product_image",
			Fields: fields(
				serial("product_image_id"),
				ref("product_id", "product", "Product"),
				text("file_name"),
				integer("rank"),
				createDate(),
			),
			Key: []string{"id"},
		},
		{
			Name:     "product_tag",
			SQLTable: "dtb_product_tag",
			Fields: fields(
				serial("product_tag_id"),
				ref("product_id", "product", "Product"),
				refColumn("tag", "tag", "tag", "Tag"),
				createDate(),
			),
			Key: []string{"id"},
		},
		{
			Name:     "product_category",
			SQLTable: "dtb_product_category",
			Fields: fields(
				ref("product_id", "product", "Product"),
				ref("category_id", "category", "Category"),
				integer("rank"),
			),
			Key: []string{"product_id", "category_id"},
		},

		// Customers and orders
		{
			Name:     "customer",
			SQLTable: "dtb_customer",
			Fields: fields(
				serial("customer_id"),
				refColumn("status", "status", "customer_status", "Status"),
				refColumn("sex", "sex", "sex", "Sex"),
				refColumn("job", "job", "job", "Job"),
				refColumn("pref", "pref", "pref", "Pref"),
				text("name01"),
				text("name02"),
				text("kana01"),
				text("kana02"),
				text("company_name"),
				text("zip01"),
				text("zip02"),
				text("addr01"),
				text("addr02"),
				text("email"),
				text("tel01"),
				text("tel02"),
				text("tel03"),
				column("birth", "birth", entities.KindTime),
				decimal("point"),
				text("note"),
				timestamps(),
				delFlg(),
			),
			Key:             []string{"id"},
			SoftDeleteField: SoftDeleteField,
		},
		{
			Name:     "customer_address",
			SQLTable: "dtb_customer_address",
			Fields: fields(
				serial("customer_address_id"),
				ref("customer_id", "customer", "Customer"),
				refColumn("pref", "pref", "pref", "Pref"),
				text("name01"),
				text("name02"),
				text("company_name"),
				text("zip01"),
				text("zip02"),
				text("addr01"),
				text("addr02"),
				text("tel01"),
				text("tel02"),
				text("tel03"),
				timestamps(),
				delFlg(),
			),
			Key:             []string{"id"},
			SoftDeleteField: SoftDeleteField,
		},
		{
			Name:     "order",
			SQLTable: "dtb_order",
			Fields: fields(
				serial("order_id"),
				ref("customer_id", "customer", "Customer"),
				refColumn("order_status", "status", "order_status", "OrderStatus"),
				ref("payment_id", "payment", ""),
				column("name01", "order_name01", entities.KindString),
				column("name02", "order_name02", entities.KindString),
				column("email", "order_email", entities.KindString),
				column("tel01", "order_tel01", entities.KindString),
				column("tel02", "order_tel02", entities.KindString),
				column("tel03", "order_tel03", entities.KindString),
				decimal("subtotal"),
				decimal("discount"),
				decimal("delivery_fee_total"),
				decimal("charge"),
				decimal("tax"),
				decimal("total"),
				decimal("payment_total"),
				text("payment_method"),
				text("note"),
				column("order_date", "order_date", entities.KindTime),
				timestamps(),
				delFlg(),
			),
			Key:             []string{"id"},
			SoftDeleteField: SoftDeleteField,
		},
		{
			Name:     "order_detail",
			SQLTable: "dtb_order_detail",
			Fields: fields(
				serial("order_detail_id"),
				ref("order_id", "order", ""),
				ref("product_id", "product", "Product"),
				ref("product_class_id", "product_class", "ProductClass"),
				text("product_name"),
				text("product_code"),
				decimal("price"),
				decimal("quantity"),
				decimal("tax_rate"),
			),
			Key: []string{"id"},
		},

		// Shipping and payment
		{
			Name:     "delivery",
			SQLTable: "dtb_deliv",
			Fields: fields(
				serial("deliv_id"),
				text("name"),
				text("service_name"),
				text("description"),
				text("confirm_url"),
				integer("rank"),
				timestamps(),
				delFlg(),
			),
			Key:             []string{"id"},
			SoftDeleteField: SoftDeleteField,
		},
		{
			Name:     "payment",
			SQLTable: "dtb_payment",
			Fields: fields(
				serial("payment_id"),
				column("method", "payment_method", entities.KindString),
				decimal("charge"),
				decimal("rule_max"),
				integer("rank"),
				integer("fix_flg"),
				timestamps(),
				delFlg(),
			),
			Key:             []string{"id"},
			SoftDeleteField: SoftDeleteField,
		},
		{
			Name:     "payment_option",
			SQLTable: "dtb_payment_option",
			Fields: fields(
				ref("delivery_id", "delivery", "Delivery"),
				ref("payment_id", "payment", "Payment"),
			),
			Key: []string{"delivery_id", "payment_id"},
		},

		// Layout
		{
			Name:     "page_layout",
			SQLTable: "dtb_page_layout",
			Fields: fields(
				serial("page_id"),
				integer("device_type_id"),
				column("name", "page_name", entities.KindString),
				text("url"),
				text("file_name"),
				integer("edit_flg"),
				timestamps(),
			),
			Key: []string{"id"},
		},
		{
			Name:     "block",
			SQLTable: "dtb_block",
			Fields: fields(
				serial("block_id"),
				integer("device_type_id"),
				column("name", "block_name", entities.KindString),
				text("file_name"),
				integer("logic_flg"),
				integer("deletable_flg"),
				timestamps(),
			),
			Key: []string{"id"},
		},
		{
			Name:     "block_position",
			SQLTable: "dtb_block_position",
			Fields: fields(
				ref("page_id", "page_layout", "PageLayout"),
				integer("target_id"),
				ref("block_id", "block", "Block"),
				integer("block_row"),
				integer("anywhere"),
			),
			Key: []string{"page_id", "target_id", "block_id"},
		},

		// Staff
		{
			Name:     "member",
			SQLTable: "dtb_member",
			Fields: fields(
				serial("member_id"),
				text("name"),
				text("department"),
				text("login_id"),
				integer("work"),
				integer("rank"),
				timestamps(),
				delFlg(),
			),
			Key:             []string{"id"},
			SoftDeleteField: SoftDeleteField,
		},
	}
}

// master builds a descriptor for an mtb_* master table (explicit id, name, rank)
func master(name, sqlTable string) *entities.Descriptor {
	return &entities.Descriptor{
		Name:     name,
		SQLTable: sqlTable,
		Fields: fields(
			integer("id"),
			text("name"),
			integer("rank"),
		),
		Key: []string{"id"},
	}
}

func fields(groups ...interface{}) []*entities.Field {
	var out []*entities.Field
	for _, g := range groups {
		switch v := g.(type) {
		case *entities.Field:
			out = append(out, v)
		case []*entities.Field:
			out = append(out, v...)
		}
	}
	return out
}

func serial(col string) *entities.Field {
	return &entities.Field{Name: "id", Column: col, Kind: entities.KindInt, Generated: true}
}

func column(name, col string, kind entities.Kind) *entities.Field {
	return &entities.Field{Name: name, Column: col, Kind: kind}
}

func text(name string) *entities.Field {
	return column(name, name, entities.KindString)
}

func integer(name string) *entities.Field {
	return column(name, name, entities.KindInt)
}

func decimal(name string) *entities.Field {
	return column(name, name, entities.KindFloat)
}

func ref(name, table, embedAs string) *entities.Field {
	return refColumn(name, name, table, embedAs)
}

func refColumn(name, col, table, embedAs string) *entities.Field {
	f := column(name, col, entities.KindInt)
	f.Ref = &entities.Ref{Table: table, EmbedAs: embedAs}
	return f
}

func createDate() *entities.Field {
	return &entities.Field{Name: "create_date", Column: "create_date", Kind: entities.KindTime, Managed: true}
}

func timestamps() []*entities.Field {
	return []*entities.Field{
		createDate(),
		{Name: "update_date", Column: "update_date", Kind: entities.KindTime, Managed: true},
	}
}

func delFlg() *entities.Field {
	return integer(SoftDeleteField)
}
