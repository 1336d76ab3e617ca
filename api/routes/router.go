package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/freightdispatch-backend/api/controllers"
	"github.com/angelmondragon/freightdispatch-backend/api/middleware"
	"github.com/angelmondragon/freightdispatch-backend/internal/assignment"
	"github.com/angelmondragon/freightdispatch-backend/internal/bids"
	"github.com/angelmondragon/freightdispatch-backend/internal/geocoding"
	"github.com/angelmondragon/freightdispatch-backend/internal/loads"
	"github.com/angelmondragon/freightdispatch-backend/internal/notifications"
	"github.com/angelmondragon/freightdispatch-backend/internal/settlement"
	"github.com/angelmondragon/freightdispatch-backend/internal/tracking"
	"github.com/angelmondragon/freightdispatch-backend/pkg/config"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	loadService loads.Service,
	bidService bids.Service,
	trackingService tracking.Service,
	assignmentService assignment.Service,
	geocodingService geocoding.Service,
	settlementGuard settlement.Guard,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	bidPolicy := middleware.NewRateLimitPolicy(
		"bids",
		cfg.RateLimit.BidWindow,
		cfg.RateLimit.BidIPLimit,
		cfg.RateLimit.BidCompanyLimit,
	)

	pingers := map[string]controllers.Pinger{"db": dbP}
	bidLimiter := func(next http.Handler) http.Handler { return next }
	if redisClient != nil {
		pingers["redis"] = redisClient
		bidLimiter = middleware.RateLimit(bidPolicy, redisClient, logg)
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/loads", func(r chi.Router) {
			r.Get("/", controllers.ListLoads(loadService, logg))
			r.With(middleware.RequireStaff(logg)).Post("/", controllers.CreateLoad(loadService, logg))

			r.Route("/{loadId}", func(r chi.Router) {
				r.Get("/", controllers.GetLoad(loadService, logg))
				r.Post("/transition", controllers.TransitionLoad(loadService, logg))
				r.Post("/confirm-rate", controllers.ConfirmRate(loadService, logg))
				r.Get("/tracking", controllers.GetTracking(trackingService, logg))
				r.Put("/tracking", controllers.UpdateTracking(trackingService, logg))
				r.Get("/invoice", controllers.GetInvoice(settlementGuard, logg))

				r.Route("/bids", func(r chi.Router) {
					r.Get("/", controllers.ListBids(bidService, logg))
					r.With(bidLimiter).Post("/", controllers.SubmitBid(bidService, logg))
					r.With(middleware.RequireStaff(logg)).Post("/{bidId}/accept", controllers.AcceptBid(bidService, logg))
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireStaff(logg))
					r.Delete("/", controllers.DeleteLoad(loadService, logg))
					r.Put("/carrier", controllers.AssignCarrier(loadService, logg))
					r.Post("/driver", controllers.AssignDriver(loadService, logg))
					r.Post("/invoice", controllers.IssueInvoice(settlementGuard, logg))
					r.Post("/geocode", controllers.GeocodeLoad(geocodingService, logg))
					r.Get("/proximity", controllers.LoadProximity(assignmentService, logg))
					r.Get("/carrier-proximity", controllers.CarrierProximity(assignmentService, logg))
				})
			})
		})

		r.With(middleware.RequireStaff(logg)).Post("/bids/{bidId}/reject", controllers.RejectBid(bidService, logg))

		r.Route("/drivers/{driverId}", func(r chi.Router) {
			r.Post("/locations", controllers.RecordLocation(trackingService, logg))
			r.Get("/location", controllers.CurrentLocation(trackingService, logg))
			r.Get("/stops", controllers.ListStops(trackingService, logg))
			r.Put("/stops", controllers.UpdateRouteStops(trackingService, logg))
		})
		r.Post("/stops/{stopId}/complete", controllers.CompleteStop(trackingService, logg))

		r.With(middleware.RequireStaff(logg)).Get("/dispatch/assignments", controllers.OptimizedAssignments(assignmentService, logg))
		r.With(middleware.RequireStaff(logg)).Post("/invoices/{invoiceId}/pay", controllers.MarkInvoicePaid(settlementGuard, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
