package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/stockflow-backend/internal/articles"
	"github.com/angelmondragon/stockflow-backend/internal/purchaseorders"
	"github.com/angelmondragon/stockflow-backend/internal/replenishment"
	"github.com/angelmondragon/stockflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/stockflow-backend/pkg/db/models"
	"github.com/angelmondragon/stockflow-backend/pkg/logger"
	"github.com/angelmondragon/stockflow-backend/pkg/metrics"
	"github.com/angelmondragon/stockflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

type pagedCandidates struct {
	rows  []models.Article
	calls int
	err   error
}

func (p *pagedCandidates) ListReviewCandidates(_ context.Context, after *pagination.Cursor, limit int) ([]models.Article, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	start := 0
	if after != nil {
		for i, row := range p.rows {
			if row.ID == after.ID {
				start = i + 1
			}
		}
	}
	end := start + limit
	if end > len(p.rows) {
		end = len(p.rows)
	}
	return p.rows[start:end], nil
}

type scriptedEngine struct {
	outcomes map[uuid.UUID]replenishment.Outcome
	failures map[uuid.UUID]error
	seen     []uuid.UUID
}

func (s *scriptedEngine) Evaluate(_ context.Context, id uuid.UUID, trigger replenishment.Trigger) (replenishment.Outcome, error) {
	s.seen = append(s.seen, id)
	if trigger != replenishment.TriggerScheduled {
		return replenishment.Outcome{}, errors.New("unexpected trigger")
	}
	if err := s.failures[id]; err != nil {
		return replenishment.Outcome{}, err
	}
	return s.outcomes[id], nil
}

type gatedEngine struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedEngine) Evaluate(ctx context.Context, _ uuid.UUID, _ replenishment.Trigger) (replenishment.Outcome, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return replenishment.Outcome{}, ctx.Err()
	}
	return replenishment.Outcome{Action: replenishment.ActionNone}, nil
}

func candidateRows(n int) []models.Article {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.Article, n)
	for i := range rows {
		rows[i] = models.Article{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
	}
	return rows
}

func TestReviewJobSummaryReadableDuringRun(t *testing.T) {
	engine := &gatedEngine{entered: make(chan struct{}, 1), release: make(chan struct{})}
	job, err := NewReplenishmentReviewJob(ReplenishmentReviewJobParams{
		Logger:     logger.Nop(),
		Candidates: &pagedCandidates{rows: candidateRows(1)},
		Engine:     engine,
	})
	if err != nil {
		t.Fatalf("NewReplenishmentReviewJob: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- job.Run(context.Background()) }()

	<-engine.entered
	if got := job.LastSummary(); got != (ReviewSummary{}) {
		t.Fatalf("summary before the pass completes = %+v", got)
	}
	close(engine.release)
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := job.LastSummary(); got != (ReviewSummary{Evaluated: 1}) {
		t.Fatalf("summary = %+v", got)
	}
}

func TestReviewJobContinuesPastFailures(t *testing.T) {
	rows := candidateRows(5)
	candidates := &pagedCandidates{rows: rows}
	orderID := uuid.New()
	engine := &scriptedEngine{
		outcomes: map[uuid.UUID]replenishment.Outcome{
			rows[0].ID: {Action: replenishment.ActionCreateOrder, Quantity: 10, OrderID: &orderID},
			rows[2].ID: {Action: replenishment.ActionSkip, Reason: replenishment.ReasonOpenOrderExists},
		},
		failures: map[uuid.UUID]error{rows[1].ID: errors.New("db timeout")},
	}
	reg := prometheus.NewRegistry()
	job, err := NewReplenishmentReviewJob(ReplenishmentReviewJobParams{
		Logger:     logger.Nop(),
		Candidates: candidates,
		Engine:     engine,
		Metrics:    metrics.NewReviewMetrics(reg),
		PageSize:   2,
	})
	if err != nil {
		t.Fatalf("NewReplenishmentReviewJob: %v", err)
	}

	runErr := job.Run(context.Background())
	if runErr == nil {
		t.Fatal("expected the failed article to surface")
	}
	if len(engine.seen) != 5 {
		t.Fatalf("expected every article evaluated, got %d", len(engine.seen))
	}
	if candidates.calls != 3 {
		t.Fatalf("expected 3 page reads, got %d", candidates.calls)
	}
	want := ReviewSummary{Evaluated: 5, Ordered: 1, Skipped: 1, Failed: 1}
	if job.LastSummary() != want {
		t.Fatalf("summary = %+v, want %+v", job.LastSummary(), want)
	}
	if got := gaugeValue(t, reg, "replenishment_review_last_pass_articles"); got != 5 {
		t.Fatalf("expected pass size 5, got %v", got)
	}
}

func TestReviewJobStopsOnListFailure(t *testing.T) {
	job, _ := NewReplenishmentReviewJob(ReplenishmentReviewJobParams{
		Logger:     logger.Nop(),
		Candidates: &pagedCandidates{err: errors.New("connection reset")},
		Engine:     &scriptedEngine{},
	})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected list error")
	}
}

func TestReviewJobHonoursCancellation(t *testing.T) {
	engine := &scriptedEngine{}
	job, _ := NewReplenishmentReviewJob(ReplenishmentReviewJobParams{
		Logger:     logger.Nop(),
		Candidates: &pagedCandidates{rows: candidateRows(3)},
		Engine:     engine,
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if len(engine.seen) != 0 {
		t.Fatal("evaluated articles after cancellation")
	}
}

func TestNewReplenishmentReviewJobValidates(t *testing.T) {
	if _, err := NewReplenishmentReviewJob(ReplenishmentReviewJobParams{}); err == nil {
		t.Fatal("expected logger error")
	}
	if _, err := NewReplenishmentReviewJob(ReplenishmentReviewJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected repository error")
	}
	if _, err := NewReplenishmentReviewJob(ReplenishmentReviewJobParams{Logger: logger.Nop(), Candidates: &pagedCandidates{}}); err == nil {
		t.Fatal("expected engine error")
	}
}

func TestReviewPassPlacesOrdersOnce(t *testing.T) {
	client, conn := dbtest.Client(t)
	now := func() time.Time { return time.Date(2026, 6, 1, 2, 0, 0, 0, time.UTC) }
	articleRepo := articles.NewRepository(conn)
	orders, err := purchaseorders.NewService(purchaseorders.NewRepository(conn), articleRepo, client, now)
	if err != nil {
		t.Fatalf("purchase orders: %v", err)
	}
	engine, err := replenishment.NewEngine(articleRepo, orders, client, replenishment.EngineOptions{Now: now})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	supplier := dbtest.SeedSupplier(t, conn, "acme")
	policy := models.FixedLotModel{LotSize: 224, ReorderPoint: 25, SafetyStock: 11}
	low := dbtest.SeedArticle(t, conn, func(a *models.Article) { a.OnHandQuantity = 5 })
	dbtest.SeedRelation(t, conn, low.ID, supplier.ID, 5, 50, 5, true)
	dbtest.SeedPolicy(t, conn, models.NewFixedLotPolicy(low.ID, policy, now()))
	healthy := dbtest.SeedArticle(t, conn, func(a *models.Article) { a.OnHandQuantity = 500 })
	dbtest.SeedRelation(t, conn, healthy.ID, supplier.ID, 5, 50, 5, true)
	dbtest.SeedPolicy(t, conn, models.NewFixedLotPolicy(healthy.ID, policy, now()))
	orphan := dbtest.SeedArticle(t, conn, func(a *models.Article) { a.OnHandQuantity = 0 })
	dbtest.SeedPolicy(t, conn, models.NewFixedLotPolicy(orphan.ID, policy, now()))

	job, err := NewReplenishmentReviewJob(ReplenishmentReviewJobParams{
		Logger:     logger.Nop(),
		Candidates: articleRepo,
		Engine:     engine,
	})
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	service := newTestService(t, NewRegistry(job), NewLocalLock(), nil)

	ctx := context.Background()
	if err := service.RunOnce(ctx); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if got := job.LastSummary(); got != (ReviewSummary{Evaluated: 2, Ordered: 1}) {
		t.Fatalf("first pass summary = %+v", got)
	}
	if err := service.RunOnce(ctx); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if got := job.LastSummary(); got != (ReviewSummary{Evaluated: 2, Ordered: 0, Skipped: 1}) {
		t.Fatalf("second pass summary = %+v", got)
	}

	var count int64
	if err := conn.Model(&models.PurchaseOrder{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one automatic order, got %d", count)
	}
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name && len(family.GetMetric()) > 0 {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}
