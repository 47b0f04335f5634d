package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/posterminal/api/controllers"
	poscontrollers "github.com/angelmondragon/posterminal/api/controllers/pos"
	purchasecontrollers "github.com/angelmondragon/posterminal/api/controllers/purchaseorders"
	"github.com/angelmondragon/posterminal/api/middleware"
	"github.com/angelmondragon/posterminal/internal/terminal"
	"github.com/angelmondragon/posterminal/pkg/config"
	"github.com/angelmondragon/posterminal/pkg/logger"
	"github.com/angelmondragon/posterminal/pkg/redis"
)

// Store is the optional redis surface the HTTP layer needs. A nil Store turns
// off idempotent replay and the readiness check.
type Store interface {
	redis.Pinger
	redis.IdempotencyStore
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store Store,
	term *terminal.Terminal,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg, term.Counter()),
		middleware.RequestID(logg, term.Counter()),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	var (
		pinger      redis.Pinger
		idempotency redis.IdempotencyStore
	)
	if store != nil {
		pinger = store
		idempotency = store
	}
	replay := middleware.Idempotency(idempotency, term.Counter(), logg)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled() {
		limiter = middleware.NewRateLimiter(cfg.RateLimit)
	}
	throttle := middleware.RateLimit(limiter, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pinger, term))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/pos", func(r chi.Router) {
		r.Use(throttle)
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", poscontrollers.GetCart(term))
			r.Delete("/", poscontrollers.ClearCart(term, logg))
			r.Post("/items", poscontrollers.AddItem(term, logg))
			r.Patch("/items/{index}", poscontrollers.UpdateQuantity(term, logg))
			r.Post("/items/{index}/discount", poscontrollers.ChangeDiscount(term, logg))
			r.Delete("/items/{index}", poscontrollers.RemoveItem(term, logg))
			r.Put("/customer", poscontrollers.SelectCustomer(term, logg))
			r.Delete("/customer", poscontrollers.ClearCustomer(term, logg))
		})

		r.Get("/search/{kind}", poscontrollers.Search(term, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", poscontrollers.CreateOrder(term, logg))
			r.Delete("/{saleId}", poscontrollers.CancelOrder(term, logg))
			r.With(replay).Post("/{saleId}/payment", poscontrollers.CompletePayment(term, logg))
		})

		r.Route("/receipts", func(r chi.Router) {
			r.Get("/{saleId}", poscontrollers.ReceiptPage(term, logg))
			r.Post("/{saleId}/print", poscontrollers.PrintReceipt(term, logg))
		})

		r.Route("/scanner", func(r chi.Router) {
			r.Get("/", poscontrollers.GetScanner(term))
			r.Delete("/", poscontrollers.StopScanner(term, logg))
			r.Post("/start", poscontrollers.StartScanner(term, logg))
			r.Post("/retry", poscontrollers.RetryScanner(term, logg))
			r.Post("/switch", poscontrollers.SwitchCamera(term, logg))
			r.Post("/torch", poscontrollers.ToggleTorch(term, logg))
			r.Post("/reset", poscontrollers.ResetScanner(term, logg))
		})
	})

	r.Route("/api/purchase-orders/draft", func(r chi.Router) {
		r.Use(throttle)
		r.Get("/", purchasecontrollers.GetDraft(term))
		r.Put("/dealer", purchasecontrollers.SelectDealer(term, logg))
		r.Delete("/dealer", purchasecontrollers.ClearDealer(term, logg))
		r.Put("/details", purchasecontrollers.SetDetails(term, logg))
		r.Post("/items", purchasecontrollers.AddItem(term, logg))
		r.Patch("/items/{index}", purchasecontrollers.UpdateQuantity(term, logg))
		r.Post("/items/{index}/discount", purchasecontrollers.ChangeDiscount(term, logg))
		r.Delete("/items/{index}", purchasecontrollers.RemoveItem(term, logg))
		r.With(replay).Post("/submit", purchasecontrollers.Submit(term, logg))
	})

	return r
}
