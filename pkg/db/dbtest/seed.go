package dbtest

import (
	"testing"

	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedSupplier inserts an active supplier.
func SeedSupplier(t testing.TB, db *gorm.DB, name string) models.Supplier {
	t.Helper()
	s := models.Supplier{Name: name}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	return s
}

// SeedArticle inserts an article with workable demand and cost defaults;
// mutate adjusts the row before insert.
func SeedArticle(t testing.TB, db *gorm.DB, mutate func(*models.Article)) models.Article {
	t.Helper()
	a := models.Article{
		Name:                 "article-" + uuid.NewString()[:8],
		AnnualDemand:         1000,
		LeadTimeDemandStdDev: 3,
		ReviewDemandStdDev:   3,
		ServiceLevel:         1.65,
		HoldingCost:          decimal.NewFromInt(2),
		OrderingCost:         decimal.NewFromInt(50),
		PurchaseCost:         decimal.NewFromInt(8),
	}
	if mutate != nil {
		mutate(&a)
	}
	if err := db.Omit(clause.Associations).Create(&a).Error; err != nil {
		t.Fatalf("seed article: %v", err)
	}
	return a
}

// SeedRelation links an article to a supplier and optionally makes the
// supplier its default.
func SeedRelation(t testing.TB, db *gorm.DB, articleID, supplierID uuid.UUID, unitCost, orderCharge int64, leadTimeDays int, makeDefault bool) models.ArticleSupplier {
	t.Helper()
	rel := models.ArticleSupplier{
		ArticleID:    articleID,
		SupplierID:   supplierID,
		UnitCost:     decimal.NewFromInt(unitCost),
		OrderCharge:  decimal.NewFromInt(orderCharge),
		LeadTimeDays: leadTimeDays,
	}
	if err := db.Omit(clause.Associations).Create(&rel).Error; err != nil {
		t.Fatalf("seed relation: %v", err)
	}
	if makeDefault {
		if err := db.Model(&models.Article{}).Where("id = ?", articleID).Update("default_supplier_id", supplierID).Error; err != nil {
			t.Fatalf("seed default supplier: %v", err)
		}
	}
	return rel
}

// SeedPolicy stores policy for its article.
func SeedPolicy(t testing.TB, db *gorm.DB, policy models.InventoryPolicy) {
	t.Helper()
	if err := db.Create(&policy).Error; err != nil {
		t.Fatalf("seed policy: %v", err)
	}
}

// SeedOrder inserts an order with one line per quantity entry, priced at unitCost.
func SeedOrder(t testing.TB, db *gorm.DB, supplierID uuid.UUID, status enums.PurchaseOrderStatus, unitCost int64, lines map[uuid.UUID]int) models.PurchaseOrder {
	t.Helper()
	order := models.PurchaseOrder{SupplierID: supplierID, Status: status}
	total := decimal.Zero
	for articleID, qty := range lines {
		amount := decimal.NewFromInt(unitCost).Mul(decimal.NewFromInt(int64(qty)))
		order.Lines = append(order.Lines, models.PurchaseOrderLine{
			ArticleID: articleID,
			Quantity:  qty,
			UnitCost:  decimal.NewFromInt(unitCost),
			Amount:    amount,
		})
		total = total.Add(amount)
	}
	order.TotalAmount = total
	if err := db.Omit("Supplier").Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}
