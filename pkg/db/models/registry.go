package models

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&Supplier{},
		&Article{},
		&ArticleSupplier{},
		&InventoryPolicy{},
		&PurchaseOrderStatusRecord{},
		&PurchaseOrder{},
		&PurchaseOrderLine{},
		&Sale{},
		&SaleLine{},
	}
}
