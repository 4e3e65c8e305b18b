package routes

import (
	"net/http"

	"github.com/angelmondragon/stockflow-backend/api/controllers"
	pocontrollers "github.com/angelmondragon/stockflow-backend/api/controllers/purchaseorders"
	salescontrollers "github.com/angelmondragon/stockflow-backend/api/controllers/sales"
	"github.com/angelmondragon/stockflow-backend/api/middleware"
	"github.com/angelmondragon/stockflow-backend/internal/articles"
	"github.com/angelmondragon/stockflow-backend/internal/purchaseorders"
	"github.com/angelmondragon/stockflow-backend/internal/sales"
	"github.com/angelmondragon/stockflow-backend/internal/suppliers"
	"github.com/angelmondragon/stockflow-backend/pkg/config"
	"github.com/angelmondragon/stockflow-backend/pkg/logger"
	"github.com/angelmondragon/stockflow-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/stockflow-backend/pkg/redis"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps carries everything the router wires into handlers. Redis and Gatherer
// are optional.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       *pkgredis.Client
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Articles       articles.Service
	Suppliers      suppliers.Service
	PurchaseOrders purchaseorders.Service
	Sales          sales.Service
	Engine         controllers.ReplenishmentEngine
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	// typed nil pointers would defeat the nil checks downstream
	var redisPinger controllers.Pinger
	var idempotencyStore pkgredis.IdempotencyStore
	if d.Redis != nil {
		redisPinger = d.Redis
		idempotencyStore = d.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, redisPinger))
	})

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Idempotency.TTL, logg))

		r.Route("/articles", func(r chi.Router) {
			r.Post("/", controllers.ArticleCreate(d.Articles, logg))
			r.Get("/", controllers.ArticleList(d.Articles, logg))
			r.Route("/{articleId}", func(r chi.Router) {
				r.Get("/", controllers.ArticleGet(d.Articles, logg))
				r.Patch("/", controllers.ArticleUpdate(d.Articles, logg))
				r.Delete("/", controllers.ArticleDelete(d.Articles, logg))
				r.Put("/default-supplier", controllers.ArticleSetDefaultSupplier(d.Articles, logg))
				r.Post("/stock", controllers.ArticleStock(d.Articles, logg))
				r.Get("/suppliers", controllers.ArticleSuppliers(d.Suppliers, logg))
				r.Post("/policy/fixed-lot", controllers.ArticleRecomputeFixedLot(d.Engine, logg))
				r.Post("/policy/fixed-interval", controllers.ArticleEstimateFixedInterval(d.Engine, logg))
				r.Delete("/policy", controllers.ArticleDetachPolicy(d.Articles, logg))
				r.Get("/cgi", controllers.ArticleCGI(d.Articles, logg))
				r.Post("/replenish", controllers.ArticleReplenish(d.Engine, logg))
			})
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/fixed-lot", controllers.InventoryFixedLot(logg))
			r.Post("/fixed-interval", controllers.InventoryFixedInterval(logg))
			r.Post("/cgi", controllers.InventoryCGI(logg))
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Post("/", controllers.SupplierCreate(d.Suppliers, logg))
			r.Get("/", controllers.SupplierList(d.Suppliers, logg))
			r.Route("/{supplierId}", func(r chi.Router) {
				r.Get("/", controllers.SupplierGet(d.Suppliers, logg))
				r.Delete("/", controllers.SupplierDelete(d.Suppliers, logg))
				r.Get("/articles", controllers.SupplierArticles(d.Suppliers, logg))
				r.Put("/articles/{articleId}", controllers.SupplierUpsertRelation(d.Suppliers, logg))
				r.Delete("/articles/{articleId}", controllers.SupplierDeleteRelation(d.Suppliers, logg))
			})
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Post("/", pocontrollers.Create(d.PurchaseOrders, logg))
			r.Get("/", pocontrollers.List(d.PurchaseOrders, logg))
			r.Get("/counts", pocontrollers.Counts(d.PurchaseOrders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", pocontrollers.Detail(d.PurchaseOrders, logg))
				r.Put("/", pocontrollers.Replace(d.PurchaseOrders, logg))
				r.Post("/send", pocontrollers.Send(d.PurchaseOrders, logg))
				r.Post("/finalize", pocontrollers.Finalize(d.PurchaseOrders, logg))
				r.Post("/cancel", pocontrollers.Cancel(d.PurchaseOrders, logg))
				r.Patch("/lines/{lineId}", pocontrollers.UpdateLine(d.PurchaseOrders, logg))
				r.Delete("/lines/{lineId}", pocontrollers.DeleteLine(d.PurchaseOrders, logg))
			})
		})

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", salescontrollers.Create(d.Sales, logg))
			r.Get("/", salescontrollers.List(d.Sales, logg))
			r.Route("/{saleId}", func(r chi.Router) {
				r.Get("/", salescontrollers.Detail(d.Sales, logg))
				r.Patch("/lines/{lineId}", salescontrollers.UpdateLine(d.Sales, logg))
				r.Delete("/lines/{lineId}", salescontrollers.DeleteLine(d.Sales, logg))
			})
		})
	})

	return r
}
