// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level); everything specific to
// the credit platform lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: eatandearn-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime
	SessionSecure bool          // Force Secure cookies outside prod

	// Audit logging: "all", "db", "log" or "off"
	AuditLogLedger string
	AuditLogAuth   string

	// Ledger behavior
	AllowQuotaOverdraw bool // Let provider quota go negative instead of rejecting
	SeedProviders      bool // Insert the default shelter and food bank into an empty collection

	// Handler timeouts (zero keeps the package default)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Origins allowed to call the /api routes from a browser
	CORSAllowedOrigins []string
}
