package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/boardpro-billing/api/controllers"
	billingcontrollers "github.com/angelmondragon/boardpro-billing/api/controllers/billing"
	subscriptioncontrollers "github.com/angelmondragon/boardpro-billing/api/controllers/subscriptions"
	webhookcontrollers "github.com/angelmondragon/boardpro-billing/api/controllers/webhooks"
	"github.com/angelmondragon/boardpro-billing/api/middleware"
	"github.com/angelmondragon/boardpro-billing/pkg/config"
	"github.com/angelmondragon/boardpro-billing/pkg/db"
	"github.com/angelmondragon/boardpro-billing/pkg/logger"
	"github.com/angelmondragon/boardpro-billing/pkg/metrics"
)

// redisClient is the slice of pkg/redis the HTTP layer needs.
type redisClient interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Replace(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	reg *prometheus.Registry,
	dbP db.Pinger,
	redisClient redisClient,
	billingService billingcontrollers.SessionService,
	subscriptionService subscriptioncontrollers.QueryService,
	webhookService webhookcontrollers.Fulfiller,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	sessionPolicy := middleware.NewRateLimitPolicy(
		"billing-session",
		cfg.RateLimit.SessionWindow,
		cfg.RateLimit.SessionLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(webhookService, cfg.Webhook.MaxBodyBytes, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		sessions := r.With(
			middleware.RateLimit(sessionPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, cfg.RateLimit.IdempotencyTTL, logg),
		)
		sessions.Post("/billing/checkout", billingcontrollers.Checkout(billingService, logg))
		sessions.Post("/billing/portal", billingcontrollers.Portal(billingService, logg))

		r.Get("/subscriptions/status", subscriptioncontrollers.Status(subscriptionService, logg))
		r.Get("/orgs/{orgId}/subscription", subscriptioncontrollers.Detail(subscriptionService, nil, logg))
	})

	return r
}
