// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (HTTP ports, TLS,
// logging, CORS). AppConfig is everything specific to DormDesk: the Mongo
// connection, session cookies, background job schedules, and the bootstrap
// admin account.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionDomain string // Cookie domain (blank means current host)

	// Background job schedules (cron specs, UTC)
	SweepSpec     string // daily assignment expiry sweep
	ReconcileSpec string // periodic unread-count reconciliation

	// Bootstrap admin account, created on startup when no admin exists.
	AdminEmail    string
	AdminPassword string
}
