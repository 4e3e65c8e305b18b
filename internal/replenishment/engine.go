package replenishment

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/stockflow-backend/internal/articles"
	"github.com/angelmondragon/stockflow-backend/internal/inventory"
	"github.com/angelmondragon/stockflow-backend/internal/purchaseorders"
	"github.com/angelmondragon/stockflow-backend/internal/repo"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/angelmondragon/stockflow-backend/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Trigger names what asked for an evaluation.
type Trigger string

const (
	// TriggerScheduled is the daily review pass; both policy kinds are evaluated.
	TriggerScheduled Trigger = "scheduled"
	// TriggerReactive follows a stock depletion; only the reorder-point rule runs.
	TriggerReactive Trigger = "reactive"
	// TriggerManual is an on-demand evaluation with scheduled semantics.
	TriggerManual Trigger = "manual"
)

// Outcome summarizes one evaluation for logs, metrics and API callers.
type Outcome struct {
	ArticleID uuid.UUID                 `json:"article_id"`
	Policy    enums.InventoryPolicyKind `json:"policy,omitempty"`
	Trigger   Trigger                   `json:"trigger"`
	Action    Action                    `json:"action"`
	Reason    Reason                    `json:"reason"`
	Quantity  int                       `json:"quantity,omitempty"`
	OrderID   *uuid.UUID                `json:"order_id,omitempty"`
	Reviewed  bool                      `json:"reviewed"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderPlacer is the slice of the purchase order lifecycle the engine uses.
type OrderPlacer interface {
	Create(ctx context.Context, input purchaseorders.CreateInput) (*models.PurchaseOrder, error)
	FindOpenOrders(ctx context.Context, articleID uuid.UUID, supplierID *uuid.UUID) ([]models.PurchaseOrder, error)
}

// OutcomeObserver receives every evaluation outcome.
type OutcomeObserver interface {
	ObserveOutcome(action, reason string)
}

// Engine evaluates articles against their inventory policy.
type Engine struct {
	articles articles.Repository
	orders   OrderPlacer
	tx       txRunner
	logg     *logger.Logger
	observer OutcomeObserver
	now      func() time.Time
	group    singleflight.Group
}

// EngineOptions carries the optional engine collaborators.
type EngineOptions struct {
	Logger   *logger.Logger
	Observer OutcomeObserver
	Now      func() time.Time
}

func NewEngine(articleRepo articles.Repository, orders OrderPlacer, tx txRunner, opts EngineOptions) (*Engine, error) {
	if articleRepo == nil {
		return nil, fmt.Errorf("articles repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order placer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		articles: articleRepo,
		orders:   orders,
		tx:       tx,
		logg:     opts.Logger,
		observer: opts.Observer,
		now:      opts.Now,
	}, nil
}

// Evaluate runs the article's policy and places an automatic purchase order
// when one is needed. Skip outcomes are returned with a nil error; only
// unexpected failures produce an error. Concurrent evaluations of the same
// article and trigger within the process share a single run.
func (e *Engine) Evaluate(ctx context.Context, articleID uuid.UUID, trigger Trigger) (Outcome, error) {
	key := string(trigger) + ":" + articleID.String()
	v, err, _ := e.group.Do(key, func() (any, error) {
		out, err := e.evaluate(ctx, articleID, trigger)
		if e.observer != nil && err == nil {
			e.observer.ObserveOutcome(string(out.Action), string(out.Reason))
		}
		return out, err
	})
	out, _ := v.(Outcome)
	return out, err
}

func (e *Engine) evaluate(ctx context.Context, articleID uuid.UUID, trigger Trigger) (Outcome, error) {
	out := Outcome{ArticleID: articleID, Trigger: trigger}

	article, err := e.articles.FindByID(ctx, articleID)
	if err != nil {
		return out, repo.Translate(err, "article", "load article")
	}
	if !article.IsActive() {
		return skip(out, ReasonInactive), nil
	}
	if article.Policy == nil {
		return skip(out, ReasonNoPolicy), nil
	}
	out.Policy = article.Policy.Kind
	if article.DefaultSupplierID == nil {
		return skip(out, ReasonNoDefaultSupplier), nil
	}
	rel, ok := article.DefaultRelation()
	if !ok {
		return skip(out, ReasonMissingRelation), nil
	}

	switch article.Policy.Kind {
	case enums.InventoryPolicyFixedLot:
		return e.evaluateFixedLot(ctx, article, rel, out)
	case enums.InventoryPolicyFixedInterval:
		if trigger == TriggerReactive {
			out.Action = ActionNone
			out.Reason = ReasonPeriodicReviewOnly
			return out, nil
		}
		return e.evaluateFixedInterval(ctx, article, rel, out)
	default:
		return skip(out, ReasonNoPolicy), nil
	}
}

func (e *Engine) evaluateFixedLot(ctx context.Context, article *models.Article, rel models.ArticleSupplier, out Outcome) (Outcome, error) {
	model, ok := article.Policy.FixedLot()
	if !ok {
		return skip(out, ReasonInsufficientData), nil
	}
	open, err := e.orders.FindOpenOrders(ctx, article.ID, &rel.SupplierID)
	if err != nil {
		return out, err
	}

	decision := DecideFixedLot(FixedLotState{
		OnHand:       article.OnHandQuantity,
		Model:        model,
		HasOpenOrder: len(open) > 0,
	})
	return e.apply(ctx, article.ID, rel.SupplierID, decision, out)
}

// evaluateFixedInterval always records the review once it was due, whether an
// order was placed or skipped, so the article keeps a fixed cadence.
func (e *Engine) evaluateFixedInterval(ctx context.Context, article *models.Article, rel models.ArticleSupplier, out Outcome) (Outcome, error) {
	model, ok := article.Policy.FixedInterval()
	if !ok || model.ReviewIntervalDays <= 0 {
		return skip(out, ReasonInsufficientData), nil
	}
	now := e.now().UTC()
	open, err := e.orders.FindOpenOrders(ctx, article.ID, &rel.SupplierID)
	if err != nil {
		return out, err
	}

	decision := DecideFixedInterval(FixedIntervalState{
		OnHand:         article.OnHandQuantity,
		Model:          model,
		Demand:         intervalDemand(*article, rel),
		LastReviewedAt: article.LastReviewedAt,
		HasOpenOrder:   len(open) > 0,
	}, now)
	if !decision.Due {
		out.Action = decision.Decision.Action
		out.Reason = decision.Decision.Reason
		return out, nil
	}

	out, err = e.apply(ctx, article.ID, rel.SupplierID, decision.Decision, out)
	if err != nil {
		return out, err
	}

	policy := models.NewFixedIntervalPolicy(article.ID, decision.Model, now)
	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r := e.articles.WithTx(tx)
		if err := r.SavePolicy(ctx, &policy); err != nil {
			return err
		}
		return r.MarkReviewed(ctx, article.ID, now)
	})
	if err != nil {
		return out, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record periodic review")
	}
	out.Reviewed = true
	return out, nil
}

// apply places the order a decision asks for. Conflicts detected inside the
// order transaction become skips.
func (e *Engine) apply(ctx context.Context, articleID, supplierID uuid.UUID, decision Decision, out Outcome) (Outcome, error) {
	out.Action = decision.Action
	out.Reason = decision.Reason
	if decision.Action != ActionCreateOrder {
		return out, nil
	}

	order, err := e.orders.Create(ctx, purchaseorders.CreateInput{
		SupplierID: supplierID,
		Lines:      []purchaseorders.LineInput{{ArticleID: articleID, Quantity: decision.Quantity}},
		Automatic:  true,
	})
	switch {
	case err == nil:
		out.Quantity = decision.Quantity
		out.OrderID = &order.ID
		return out, nil
	case pkgerrors.IsCode(err, pkgerrors.CodeDuplicateOrder):
		return skip(out, ReasonOpenOrderExists), nil
	case pkgerrors.IsCode(err, pkgerrors.CodeMissingRelation):
		return skip(out, ReasonMissingRelation), nil
	default:
		return out, err
	}
}

func intervalDemand(article models.Article, rel models.ArticleSupplier) inventory.FixedIntervalInput {
	return inventory.FixedIntervalInput{
		DailyDemand:   inventory.DailyDemand(article.AnnualDemand),
		DemandStdDev:  article.ReviewDemandStdDev,
		ServiceZScore: inventory.ServiceLevelZ(article.ServiceLevel),
		LeadTimeDays:  float64(rel.LeadTimeDays),
	}
}

func skip(out Outcome, reason Reason) Outcome {
	out.Action = ActionSkip
	out.Reason = reason
	return out
}
