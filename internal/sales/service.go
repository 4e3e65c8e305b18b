package sales

import (
	"context"
	"fmt"

	"github.com/angelmondragon/stockflow-backend/internal/articles"
	"github.com/angelmondragon/stockflow-backend/internal/replenishment"
	"github.com/angelmondragon/stockflow-backend/internal/repo"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
	"github.com/angelmondragon/stockflow-backend/pkg/logger"
	"github.com/angelmondragon/stockflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Evaluator runs the replenishment rules for an article after its stock fell.
type Evaluator interface {
	Evaluate(ctx context.Context, articleID uuid.UUID, trigger replenishment.Trigger) (replenishment.Outcome, error)
}

// LineInput sells quantity units of an article.
type LineInput struct {
	ArticleID uuid.UUID
	Quantity  int
}

type Service interface {
	Create(ctx context.Context, lines []LineInput) (*models.Sale, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	List(ctx context.Context, params pagination.Params) (pagination.Page[models.Sale], error)
	UpdateLineQuantity(ctx context.Context, saleID, lineID uuid.UUID, quantity int) (*models.Sale, error)
	DeleteLine(ctx context.Context, saleID, lineID uuid.UUID) (*models.Sale, error)
}

type service struct {
	repo      Repository
	articles  articles.Repository
	tx        txRunner
	evaluator Evaluator
	logg      *logger.Logger
}

// NewService wires the sales service. evaluator may be nil, in which case
// sales never trigger replenishment.
func NewService(repo Repository, articleRepo articles.Repository, tx txRunner, evaluator Evaluator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if articleRepo == nil {
		return nil, fmt.Errorf("articles repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, articles: articleRepo, tx: tx, evaluator: evaluator, logg: logg}, nil
}

// Create records the sale and depletes stock atomically; no line may sell
// more than is on hand. Replenishment runs after the commit.
func (s *service) Create(ctx context.Context, inputs []LineInput) (*models.Sale, error) {
	if err := validateLines(inputs); err != nil {
		return nil, err
	}

	sale := &models.Sale{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalog := s.articles.WithTx(tx)
		for _, in := range inputs {
			article, err := catalog.FindByID(ctx, in.ArticleID)
			if err != nil {
				return repo.Translate(err, "article", "load article")
			}
			if !article.IsActive() {
				return pkgerrors.New(pkgerrors.CodeNotFound, "article not found")
			}
			if err := catalog.AdjustStock(ctx, in.ArticleID, -in.Quantity); err != nil {
				return stockError(err, *article, in.Quantity)
			}
			sale.Lines = append(sale.Lines, models.SaleLine{
				ArticleID: in.ArticleID,
				Quantity:  in.Quantity,
				UnitPrice: article.PurchaseCost,
				Amount:    lineAmount(article.PurchaseCost, in.Quantity),
			})
		}
		sale.TotalAmount = Total(sale.Lines)
		if err := s.repo.WithTx(tx).Create(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, in := range inputs {
		s.replenish(ctx, in.ArticleID)
	}
	return s.Get(ctx, sale.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.Translate(err, "sale", "load sale")
	}
	return sale, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (pagination.Page[models.Sale], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[models.Sale]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	return page, nil
}

// UpdateLineQuantity moves stock by the difference and reprices the line at
// the article's current price.
func (s *service) UpdateLineQuantity(ctx context.Context, saleID, lineID uuid.UUID, quantity int) (*models.Sale, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	var articleID uuid.UUID
	var depleted bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sales := s.repo.WithTx(tx)
		catalog := s.articles.WithTx(tx)

		sale, err := sales.FindByID(ctx, saleID)
		if err != nil {
			return repo.Translate(err, "sale", "load sale")
		}
		idx := lineIndex(sale.Lines, lineID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "sale line not found")
		}
		line := &sale.Lines[idx]
		articleID = line.ArticleID

		article, err := catalog.FindByID(ctx, line.ArticleID)
		if err != nil {
			return repo.Translate(err, "article", "load article")
		}
		diff := quantity - line.Quantity
		if diff != 0 {
			if err := catalog.AdjustStock(ctx, line.ArticleID, -diff); err != nil {
				return stockError(err, *article, diff)
			}
		}
		depleted = diff > 0

		line.Quantity = quantity
		line.UnitPrice = article.PurchaseCost
		line.Amount = lineAmount(article.PurchaseCost, quantity)
		if err := sales.UpdateLine(ctx, line); err != nil {
			return repo.Translate(err, "sale line", "update sale line")
		}
		if err := sales.UpdateTotal(ctx, sale.ID, sale.Lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if depleted {
		s.replenish(ctx, articleID)
	}
	return s.Get(ctx, saleID)
}

// DeleteLine returns the line's units to stock. The last line of a sale
// cannot be removed.
func (s *service) DeleteLine(ctx context.Context, saleID, lineID uuid.UUID) (*models.Sale, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sales := s.repo.WithTx(tx)
		sale, err := sales.FindByID(ctx, saleID)
		if err != nil {
			return repo.Translate(err, "sale", "load sale")
		}
		idx := lineIndex(sale.Lines, lineID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "sale line not found")
		}
		if len(sale.Lines) == 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "a sale needs at least one line")
		}
		line := sale.Lines[idx]
		if err := s.articles.WithTx(tx).AdjustStock(ctx, line.ArticleID, line.Quantity); err != nil {
			return articles.StockError(err)
		}
		if err := sales.DeleteLine(ctx, sale.ID, line.ID); err != nil {
			return repo.Translate(err, "sale line", "delete sale line")
		}
		remaining := append(sale.Lines[:idx:idx], sale.Lines[idx+1:]...)
		if err := sales.UpdateTotal(ctx, sale.ID, remaining); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, saleID)
}

// replenish never fails the sale; evaluation problems are logged.
func (s *service) replenish(ctx context.Context, articleID uuid.UUID) {
	if s.evaluator == nil {
		return
	}
	logCtx := s.logg.WithArticleID(ctx, articleID.String())
	out, err := s.evaluator.Evaluate(ctx, articleID, replenishment.TriggerReactive)
	if err != nil {
		s.logg.Error(logCtx, "reactive replenishment failed", err)
		return
	}
	if out.Action == replenishment.ActionCreateOrder {
		logCtx = s.logg.WithFields(logCtx, map[string]any{"quantity": out.Quantity, "reason": string(out.Reason)})
		s.logg.Info(logCtx, "reactive replenishment placed purchase order")
	}
}

// Total sums line amounts.
func Total(lines []models.SaleLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
	}
	return total
}

func lineAmount(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

func stockError(err error, article models.Article, requested int) error {
	mapped := articles.StockError(err)
	if typed := pkgerrors.As(mapped); typed != nil && typed.Code() == pkgerrors.CodeStockConstraint {
		return typed.WithDetails(map[string]any{
			"article_id": article.ID,
			"on_hand":    article.OnHandQuantity,
			"requested":  requested,
		})
	}
	return mapped
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.ArticleID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "article_id is required on every line")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be greater than zero")
		}
		if _, dup := seen[line.ArticleID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "an article may appear on only one line")
		}
		seen[line.ArticleID] = struct{}{}
	}
	return nil
}

func lineIndex(lines []models.SaleLine, id uuid.UUID) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}
