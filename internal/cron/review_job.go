package cron

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/stockflow-backend/internal/replenishment"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/logger"
	"github.com/angelmondragon/stockflow-backend/pkg/metrics"
	"github.com/angelmondragon/stockflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultReviewPageSize = 100

type reviewCandidates interface {
	ListReviewCandidates(ctx context.Context, after *pagination.Cursor, limit int) ([]models.Article, error)
}

type reviewEvaluator interface {
	Evaluate(ctx context.Context, articleID uuid.UUID, trigger replenishment.Trigger) (replenishment.Outcome, error)
}

type ReplenishmentReviewJobParams struct {
	Logger     *logger.Logger
	Candidates reviewCandidates
	Engine     reviewEvaluator
	Metrics    *metrics.ReviewMetrics
	PageSize   int
}

// ReviewSummary tallies one pass.
type ReviewSummary struct {
	Evaluated int
	Ordered   int
	Skipped   int
	Failed    int
}

// ReplenishmentReviewJob evaluates every reviewable article with the scheduled
// trigger. A failing article never stops the pass.
type ReplenishmentReviewJob struct {
	logg       *logger.Logger
	candidates reviewCandidates
	engine     reviewEvaluator
	metrics    *metrics.ReviewMetrics
	pageSize   int

	mu   sync.RWMutex
	last ReviewSummary
}

func NewReplenishmentReviewJob(params ReplenishmentReviewJobParams) (*ReplenishmentReviewJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Candidates == nil {
		return nil, fmt.Errorf("article repository required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("replenishment engine required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = defaultReviewPageSize
	}
	return &ReplenishmentReviewJob{
		logg:       params.Logger,
		candidates: params.Candidates,
		engine:     params.Engine,
		metrics:    params.Metrics,
		pageSize:   pagination.NormalizeLimit(pageSize),
	}, nil
}

func (j *ReplenishmentReviewJob) Name() string { return ReviewLockName }

// LastSummary reports the most recent completed pass. It is safe to call
// while Run is executing.
func (j *ReplenishmentReviewJob) LastSummary() ReviewSummary {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.last
}

func (j *ReplenishmentReviewJob) Run(ctx context.Context) error {
	var (
		summary ReviewSummary
		errs    error
		after   *pagination.Cursor
	)
	defer func() {
		j.mu.Lock()
		j.last = summary
		j.mu.Unlock()
		j.metrics.SetPassSize(summary.Evaluated)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		page, err := j.candidates.ListReviewCandidates(ctx, after, j.pageSize)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list review candidates: %w", err))
		}
		for _, article := range page {
			if err := ctx.Err(); err != nil {
				return multierr.Append(errs, err)
			}
			if err := j.review(ctx, article.ID, &summary); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		if len(page) < j.pageSize {
			break
		}
		last := page[len(page)-1]
		after = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"evaluated": summary.Evaluated,
		"ordered":   summary.Ordered,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	})
	j.logg.Info(logCtx, "replenishment review pass complete")
	return errs
}

func (j *ReplenishmentReviewJob) review(ctx context.Context, articleID uuid.UUID, summary *ReviewSummary) error {
	summary.Evaluated++
	logCtx := j.logg.WithArticleID(ctx, articleID.String())

	out, err := j.engine.Evaluate(ctx, articleID, replenishment.TriggerScheduled)
	if err != nil {
		summary.Failed++
		j.logg.Error(logCtx, "replenishment evaluation failed", err)
		return fmt.Errorf("article %s: %w", articleID, err)
	}

	logCtx = j.logg.WithFields(logCtx, map[string]any{
		"policy": string(out.Policy),
		"reason": string(out.Reason),
	})
	switch out.Action {
	case replenishment.ActionCreateOrder:
		summary.Ordered++
		if out.OrderID != nil {
			logCtx = j.logg.WithOrderID(logCtx, out.OrderID.String())
		}
		logCtx = j.logg.WithField(logCtx, "quantity", out.Quantity)
		j.logg.Info(logCtx, "purchase order placed")
	case replenishment.ActionSkip:
		summary.Skipped++
		j.logg.Info(logCtx, "article skipped")
	default:
		j.logg.Debug(logCtx, "no replenishment needed")
	}
	return nil
}
