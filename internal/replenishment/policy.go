package replenishment

import (
	"context"

	"github.com/angelmondragon/stockflow-backend/internal/inventory"
	"github.com/angelmondragon/stockflow-backend/internal/repo"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PolicyResult is a freshly stored policy with the matching CGI snapshot.
// CGI is nil when the cost inputs are incomplete.
type PolicyResult struct {
	ArticleID     uuid.UUID                  `json:"article_id"`
	Kind          enums.InventoryPolicyKind  `json:"kind"`
	FixedLot      *models.FixedLotModel      `json:"fixed_lot,omitempty"`
	FixedInterval *models.FixedIntervalModel `json:"fixed_interval,omitempty"`
	CGI           *decimal.Decimal           `json:"cgi,omitempty"`
}

// RecomputeFixedLot computes Q, R and SS from the default supplier relation
// and stores them as the article's policy, replacing any periodic-review
// policy.
func (e *Engine) RecomputeFixedLot(ctx context.Context, articleID uuid.UUID) (PolicyResult, error) {
	article, rel, err := e.loadForPolicy(ctx, articleID)
	if err != nil {
		return PolicyResult{}, err
	}

	res, err := inventory.ComputeFixedLot(inventory.FixedLotInput{
		AnnualDemand:  article.AnnualDemand,
		OrderingCost:  rel.OrderCharge.InexactFloat64(),
		HoldingCost:   article.HoldingCost.InexactFloat64(),
		LeadTimeDays:  float64(rel.LeadTimeDays),
		DemandStdDev:  article.LeadTimeDemandStdDev,
		ServiceZScore: inventory.ServiceLevelZ(article.ServiceLevel),
	})
	if err != nil {
		return PolicyResult{}, err
	}

	model := models.FixedLotModel{LotSize: res.LotSize, ReorderPoint: res.ReorderPoint, SafetyStock: res.SafetyStock}
	policy := models.NewFixedLotPolicy(article.ID, model, e.now().UTC())
	cgi := snapshotCGI(*article, rel, res.LotSize)
	if err := e.storePolicy(ctx, article, &policy, cgi); err != nil {
		return PolicyResult{}, err
	}
	return PolicyResult{ArticleID: article.ID, Kind: policy.Kind, FixedLot: &model, CGI: cgi}, nil
}

// EstimateFixedInterval sizes a periodic-review policy before the article is
// first reviewed. Stock on hand is ignored, so the order quantity is the
// full ceiling M and overstates what a real review would order.
func (e *Engine) EstimateFixedInterval(ctx context.Context, articleID uuid.UUID, intervalDays int) (PolicyResult, error) {
	if intervalDays <= 0 {
		return PolicyResult{}, pkgerrors.New(pkgerrors.CodeValidation, "review interval days must be greater than zero")
	}
	article, rel, err := e.loadForPolicy(ctx, articleID)
	if err != nil {
		return PolicyResult{}, err
	}
	if !(article.AnnualDemand > 0) {
		return PolicyResult{}, pkgerrors.InsufficientData("fixed interval model requires positive inputs").
			WithDetails(map[string]any{"non_positive": []string{"annual_demand"}})
	}

	in := intervalDemand(*article, rel)
	in.ReviewIntervalDays = float64(intervalDays)
	res := inventory.ComputeFixedInterval(in)

	model := models.FixedIntervalModel{
		ReviewIntervalDays: intervalDays,
		SafetyStock:        res.SafetyStock,
		MaxInventory:       res.MaxInventory,
		OrderQuantity:      res.OrderQuantity,
	}
	policy := models.NewFixedIntervalPolicy(article.ID, model, e.now().UTC())
	cgi := snapshotCGI(*article, rel, res.OrderQuantity)
	if err := e.storePolicy(ctx, article, &policy, cgi); err != nil {
		return PolicyResult{}, err
	}
	return PolicyResult{ArticleID: article.ID, Kind: policy.Kind, FixedInterval: &model, CGI: cgi}, nil
}

func (e *Engine) loadForPolicy(ctx context.Context, articleID uuid.UUID) (*models.Article, models.ArticleSupplier, error) {
	article, err := e.articles.FindByID(ctx, articleID)
	if err != nil {
		return nil, models.ArticleSupplier{}, repo.Translate(err, "article", "load article")
	}
	if !article.IsActive() {
		return nil, models.ArticleSupplier{}, pkgerrors.New(pkgerrors.CodeNotFound, "article not found")
	}
	rel, ok := article.DefaultRelation()
	if !ok {
		return nil, models.ArticleSupplier{}, pkgerrors.MissingRelation("article has no default supplier relation").
			WithDetails(map[string]any{"article_id": articleID})
	}
	return article, rel, nil
}

// storePolicy swaps the policy variant and CGI snapshot in one transaction.
// Switching kinds resets the review timestamp so the first periodic review
// happens on the next pass.
func (e *Engine) storePolicy(ctx context.Context, article *models.Article, policy *models.InventoryPolicy, cgi *decimal.Decimal) error {
	kindChanged := article.Policy == nil || article.Policy.Kind != policy.Kind
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r := e.articles.WithTx(tx)
		if err := r.SavePolicy(ctx, policy); err != nil {
			return err
		}
		if err := r.SetCGI(ctx, article.ID, cgi); err != nil {
			return err
		}
		if kindChanged {
			return r.Update(ctx, article.ID, map[string]any{"last_reviewed_at": nil})
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store inventory policy")
	}
	return nil
}

func snapshotCGI(article models.Article, rel models.ArticleSupplier, lot int) *decimal.Decimal {
	if lot <= 0 {
		return nil
	}
	cgi, err := inventory.ComputeCGI(inventory.CGIInput{
		AnnualDemand: article.AnnualDemand,
		UnitCost:     rel.UnitCost.InexactFloat64(),
		LotSize:      float64(lot),
		OrderingCost: rel.OrderCharge.InexactFloat64(),
		HoldingCost:  article.HoldingCost.InexactFloat64(),
	})
	if err != nil {
		return nil
	}
	return &cgi
}
