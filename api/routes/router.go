package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avalogan/silkstrands-backend/api/controllers"
	webhookcontrollers "github.com/avalogan/silkstrands-backend/api/controllers/webhooks"
	"github.com/avalogan/silkstrands-backend/api/middleware"
	"github.com/avalogan/silkstrands-backend/internal/cart"
	checkoutsvc "github.com/avalogan/silkstrands-backend/internal/checkout"
	"github.com/avalogan/silkstrands-backend/internal/effects"
	"github.com/avalogan/silkstrands-backend/internal/payments"
	stripewebhook "github.com/avalogan/silkstrands-backend/internal/webhooks/stripe"
	"github.com/avalogan/silkstrands-backend/pkg/config"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
	"github.com/avalogan/silkstrands-backend/pkg/redis"
	"github.com/avalogan/silkstrands-backend/pkg/stripe"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config             *config.Config
	Logger             *logger.Logger
	Redis              *redis.Client
	Carts              *cart.Store
	Gateway            payments.IntentGateway
	Checkout           *checkoutsvc.Orchestrator
	Invoices           *effects.InvoiceStore
	StripeClient       *stripe.Client
	StripeWebhookSvc   *stripewebhook.Service
	StripeWebhookGuard *stripewebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.ExtraCORSOrigins...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.Redis, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Legacy storefront surface. Paths and shapes match the endpoints the
	// deployed storefront already calls.
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", controllers.Health(cfg))
		r.Post("/create-payment-intent", controllers.CreatePaymentIntent(p.Gateway, logg))
		r.Post("/confirm-payment", controllers.ConfirmPayment(p.Gateway, logg))
		r.Post("/process-paypal-payment", controllers.ProcessPayPalPayment(p.Checkout, logg))
		r.Post("/webhook", webhookcontrollers.StripeWebhook(p.StripeWebhookSvc, p.StripeClient, p.StripeWebhookGuard, logg))
		r.Get("/payment-intent/{id}", controllers.GetPaymentIntent(p.Gateway, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/carts", func(r chi.Router) {
			r.Post("/", controllers.CartCreate(p.Carts, logg))
			r.Route("/{cartID}", func(r chi.Router) {
				r.Get("/", controllers.CartGet(p.Carts, logg))
				r.Delete("/", controllers.CartClear(p.Carts, logg))
				r.Post("/items", controllers.CartAddItem(p.Carts, logg))
				r.Patch("/items/{itemID}", controllers.CartUpdateItem(p.Carts, logg))
				r.Delete("/items/{itemID}", controllers.CartRemoveItem(p.Carts, logg))
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.Checkout(p.Checkout, logg))
			r.Post("/paypal/complete", controllers.CheckoutPayPalComplete(p.Checkout, logg))
			r.Post("/paypal/cancel", controllers.CheckoutPayPalCancel(p.Checkout, logg))
		})

		r.Get("/orders/{orderID}/invoice", controllers.OrderInvoice(p.Invoices, logg))
	})

	return r
}
