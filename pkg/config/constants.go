package config

const (
	// EnvPrefix is passed to envconfig; individual fields carry fully
	// qualified names so the prefix stays empty.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv              = "SILKSTRANDS_APP_ENV"
	EnvAppPort             = "SILKSTRANDS_APP_PORT"
	EnvRedisURL            = "SILKSTRANDS_REDIS_URL"
	EnvStripeSecretKey     = "SILKSTRANDS_STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "SILKSTRANDS_STRIPE_WEBHOOK_SECRET"
	EnvDemoMode            = "SILKSTRANDS_CHECKOUT_DEMO_MODE"
)
