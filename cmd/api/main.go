package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avalogan/silkstrands-backend/api/routes"
	"github.com/avalogan/silkstrands-backend/internal/cart"
	checkoutsvc "github.com/avalogan/silkstrands-backend/internal/checkout"
	"github.com/avalogan/silkstrands-backend/internal/effects"
	"github.com/avalogan/silkstrands-backend/internal/notify"
	"github.com/avalogan/silkstrands-backend/internal/payments"
	cardflow "github.com/avalogan/silkstrands-backend/internal/payments/card"
	paypalflow "github.com/avalogan/silkstrands-backend/internal/payments/paypal"
	stripewebhook "github.com/avalogan/silkstrands-backend/internal/webhooks/stripe"
	"github.com/avalogan/silkstrands-backend/pkg/config"
	"github.com/avalogan/silkstrands-backend/pkg/env"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
	"github.com/avalogan/silkstrands-backend/pkg/metrics"
	"github.com/avalogan/silkstrands-backend/pkg/redis"
	"github.com/avalogan/silkstrands-backend/pkg/stripe"
)

const cartPruneInterval = time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)
	mailer := notify.NewMailer(cfg.Email, logg)
	carts := cart.NewStore()
	invoices := effects.NewInvoiceStore()

	var (
		gateway      payments.IntentGateway
		stripeClient *stripe.Client
		cardFlow     checkoutsvc.CardFlow
	)
	if cfg.Checkout.DemoMode {
		logg.Warn(context.Background(), "demo mode enabled, payments are synthesized locally")
		gateway = payments.NewDemoGateway(cfg.Checkout.DemoDelay, logg)
		cardFlow, err = cardflow.NewFlow(cardflow.FlowParams{
			Tokenizer: cardflow.NewDemoTokenizer(),
			Confirmer: cardflow.NewDemoConfirmer(cfg.Checkout.DemoDelay),
			Logger:    logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to build demo card flow", err)
			os.Exit(1)
		}
	} else {
		stripeClient, err = stripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap stripe", err)
			os.Exit(1)
		}
		intentAPI := payments.NewStripeIntentAPI(stripeClient)
		gateway, err = payments.NewStripeGateway(intentAPI, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to build intent gateway", err)
			os.Exit(1)
		}
		cardFlow, err = cardflow.NewFlow(cardflow.FlowParams{
			Tokenizer: cardflow.NewStripeTokenizer(),
			Confirmer: intentAPI,
			Logger:    logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to build card flow", err)
			os.Exit(1)
		}
	}

	var paypalFlowSvc checkoutsvc.PayPalFlow
	if cfg.PayPal.Configured() {
		paypalClient, err := paypalflow.NewClient(cfg.PayPal, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap paypal", err)
			os.Exit(1)
		}
		paypalFlowSvc, err = paypalflow.NewFlow(paypalClient, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to build paypal flow", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "paypal credentials absent, paypal checkout disabled")
	}

	dispatcher, err := effects.NewDispatcher(effects.DispatcherParams{
		Carts:           carts,
		Mailer:          mailer,
		Invoices:        invoices,
		BusinessAddress: cfg.Email.BusinessAddress,
		Metrics:         paymentMetrics,
		Logger:          logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build effects dispatcher", err)
		os.Exit(1)
	}

	orchestrator, err := checkoutsvc.New(checkoutsvc.Params{
		Carts:      carts,
		Gateway:    gateway,
		CardFlow:   cardFlow,
		PayPalFlow: paypalFlowSvc,
		Effects:    dispatcher,
		Metrics:    paymentMetrics,
		Currency:   cfg.Checkout.Currency,
		Sessions:   redisClient,
		SessionTTL: cfg.Checkout.SessionTTL,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build checkout orchestrator", err)
		os.Exit(1)
	}

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Mailer:          mailer,
		BusinessAddress: cfg.Email.BusinessAddress,
		Logger:          logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build webhook service", err)
		os.Exit(1)
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Checkout.WebhookDedupeTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to build webhook guard", err)
		os.Exit(1)
	}

	// Expired carts are pruned in the background for the lifetime of the
	// process.
	go func() {
		ticker := time.NewTicker(cartPruneInterval)
		defer ticker.Stop()
		for range ticker.C {
			if pruned := carts.PruneExpired(cfg.Checkout.SessionTTL); pruned > 0 {
				ctx := logg.WithField(context.Background(), "pruned", pruned)
				logg.Info(ctx, "expired carts pruned")
			}
		}
	}()

	// Hosting platforms inject PORT; it wins over the configured port.
	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"demo_mode": cfg.Checkout.DemoMode,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:             cfg,
			Logger:             logg,
			Redis:              redisClient,
			Carts:              carts,
			Gateway:            gateway,
			Checkout:           orchestrator,
			Invoices:           invoices,
			StripeClient:       stripeClient,
			StripeWebhookSvc:   webhookSvc,
			StripeWebhookGuard: webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
