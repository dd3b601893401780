package api

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
	"github.com/joacominatel/yujo/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for route registration.
// nil use cases leave their routes unregistered.
type RouterConfig struct {
	SubmitReportUseCase  *application.SubmitReportUseCase
	ReportingUseCase     *application.ReportingUseCase
	PanelAuthUseCase     *application.PanelAuthUseCase
	CongregationUseCase  *application.CongregationUseCase
	MembersUseCase       *application.MembersUseCase
	NotificationsUseCase *application.NotificationsUseCase
	TokenValidator       TokenValidator
	AdminToken           string
	HealthChecks         map[string]HealthChecker
	Logger               *logging.Logger
	Metrics              *metrics.Metrics
}

// RegisterRoutes sets up all API routes on the server.
//
// three audiences: public (members submitting reports, the week catalog),
// panel (pastoral staff, bearer token scoped to one congregation) and admin
// (operators, X-Admin-Token).
func RegisterRoutes(e *echo.Echo, config RouterConfig) {
	// prometheus metrics endpoint (no auth, standard scraping path)
	if config.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
			config.Metrics.Registry,
			promhttp.HandlerOpts{
				Registry:          config.Metrics.Registry,
				EnableOpenMetrics: true,
			},
		)))

		e.Use(metrics.Middleware(config.Metrics))
	}

	RegisterHealthRoutes(e, config.HealthChecks)

	v1 := e.Group("/api/v1")

	if config.ReportingUseCase != nil {
		NewReportHandler(config.SubmitReportUseCase, config.ReportingUseCase).RegisterRoutes(v1)
	}

	if config.CongregationUseCase != nil {
		congregationHandler := NewCongregationHandler(config.CongregationUseCase)
		congregationHandler.RegisterPublicRoutes(v1)

		admin := v1.Group("/admin", AdminAuthMiddleware(config.AdminToken))
		congregationHandler.RegisterAdminRoutes(admin)
	}

	var panel *echo.Group
	if config.TokenValidator != nil && config.PanelAuthUseCase != nil {
		panelHandler := NewPanelHandler(config.PanelAuthUseCase, config.ReportingUseCase)
		panelHandler.RegisterPublicRoutes(v1)

		panel = v1.Group("/panel", PanelAuthMiddleware(config.TokenValidator))
		panelHandler.RegisterRoutes(panel)

		if config.MembersUseCase != nil {
			NewMemberHandler(config.MembersUseCase).RegisterRoutes(panel)
		}
	}

	if config.NotificationsUseCase != nil && config.CongregationUseCase != nil {
		notificationHandler := NewNotificationHandler(config.NotificationsUseCase, config.CongregationUseCase)
		notificationHandler.RegisterPublicRoutes(v1)
		if panel != nil {
			notificationHandler.RegisterRoutes(panel)
			NewSubscriptionHandler(config.NotificationsUseCase).RegisterRoutes(panel)
		}
	}

	config.Logger.Info("api routes registered",
		"version", "v1",
		"health_endpoints", []string{"/health", "/ready"},
		"metrics_enabled", config.Metrics != nil,
		"panel_enabled", panel != nil,
		"admin_enabled", config.AdminToken != "",
		"api_prefix", "/api/v1",
	)
}
