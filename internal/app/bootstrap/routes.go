// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	assignmentsfeature "github.com/dalemusser/dormdesk/internal/app/features/assignments"
	complaintsfeature "github.com/dalemusser/dormdesk/internal/app/features/complaints"
	dashboardfeature "github.com/dalemusser/dormdesk/internal/app/features/dashboard"
	healthfeature "github.com/dalemusser/dormdesk/internal/app/features/health"
	loginfeature "github.com/dalemusser/dormdesk/internal/app/features/login"
	logoutfeature "github.com/dalemusser/dormdesk/internal/app/features/logout"
	notificationsfeature "github.com/dalemusser/dormdesk/internal/app/features/notifications"
	requestsfeature "github.com/dalemusser/dormdesk/internal/app/features/requests"
	roomsfeature "github.com/dalemusser/dormdesk/internal/app/features/rooms"
	usersfeature "github.com/dalemusser/dormdesk/internal/app/features/users"
	"github.com/dalemusser/dormdesk/internal/app/notify"
	assignmentstore "github.com/dalemusser/dormdesk/internal/app/store/assignments"
	complaintstore "github.com/dalemusser/dormdesk/internal/app/store/complaints"
	notificationstore "github.com/dalemusser/dormdesk/internal/app/store/notifications"
	requeststore "github.com/dalemusser/dormdesk/internal/app/store/requests"
	roomstore "github.com/dalemusser/dormdesk/internal/app/store/rooms"
	userstore "github.com/dalemusser/dormdesk/internal/app/store/users"
	"github.com/dalemusser/dormdesk/internal/app/system/auth"
	"github.com/dalemusser/dormdesk/internal/app/system/tasks"
	"github.com/dalemusser/dormdesk/internal/app/system/unreadsync"
	"github.com/dalemusser/dormdesk/internal/app/workflow"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// scheduler is started in BuildHandler and stopped in Shutdown.
var scheduler *tasks.Scheduler

// BuildHandler constructs the root HTTP handler for the console API.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. Everything the handlers share (stores,
// the workflow resolver, the notification fanout, the unread-count hub) is
// wired here and injected down.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionDomain, secure, logger); err != nil {
		logger.Error("session store init failed", zap.Error(err))
		return nil, err
	}

	// Stores.
	users := userstore.New(deps.MongoDatabase)
	rooms := roomstore.New(deps.MongoDatabase)
	requests := requeststore.New(deps.MongoDatabase)
	assignments := assignmentstore.New(deps.MongoDatabase)
	notifications := notificationstore.New(deps.MongoDatabase)
	complaints := complaintstore.New(deps.MongoDatabase)

	// Unread-count sync channel and its reconciler.
	hub := unreadsync.NewHub(logger)
	reconciler := unreadsync.NewReconciler(hub, notifications, logger)

	// Notification fanout: the only write path into notifications.
	fanout := notify.New(notifications, users, hub, logger)

	// The workflow resolver owns every request/assignment transition.
	resolver := workflow.NewResolver(requests, rooms, assignments, fanout, logger)

	// Background jobs: daily expiry sweep, periodic badge reconciliation.
	scheduler = tasks.NewScheduler(resolver, reconciler, appCfg.SweepSpec, appCfg.ReconcileSpec, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error("task scheduler start failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(auth.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication.
	loginHandler := loginfeature.NewHandler(users, logger)
	loginHandler.MountRoutes(r)

	logoutHandler := logoutfeature.NewHandler(logger)
	logoutHandler.MountRoutes(r)

	usersHandler := usersfeature.NewHandler(users, logger)

	// Everything below requires a signed-in session.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSignedIn)

		r.Get("/me", usersHandler.Me)

		r.Route("/requests", func(r chi.Router) {
			requestsfeature.NewHandler(requests, resolver, logger).MountRoutes(r)
		})
		r.Route("/assignments", func(r chi.Router) {
			assignmentsfeature.NewHandler(assignments, resolver, logger).MountRoutes(r)
		})
		r.Route("/notifications", func(r chi.Router) {
			notificationsfeature.NewHandler(notifications, fanout, hub, reconciler, logger).MountRoutes(r)
		})
		r.Route("/rooms", func(r chi.Router) {
			roomsfeature.NewHandler(rooms, logger).MountRoutes(r)
		})
		r.Route("/complaints", func(r chi.Router) {
			complaintsfeature.NewHandler(complaints, fanout, logger).MountRoutes(r)
		})
		r.Route("/users", func(r chi.Router) {
			usersHandler.MountRoutes(r)
		})
		r.Route("/dashboard", func(r chi.Router) {
			dashboardfeature.NewHandler(requests, rooms, assignments, complaints, users, logger).MountRoutes(r)
		})
	})

	return r, nil
}
