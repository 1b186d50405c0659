// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/eatandearn/internal/app/credits"
	accountsfeature "github.com/dalemusser/eatandearn/internal/app/features/accounts"
	"github.com/dalemusser/eatandearn/internal/app/features/apierr"
	dashboardfeature "github.com/dalemusser/eatandearn/internal/app/features/dashboard"
	directoryfeature "github.com/dalemusser/eatandearn/internal/app/features/directory"
	healthfeature "github.com/dalemusser/eatandearn/internal/app/features/health"
	ngofeature "github.com/dalemusser/eatandearn/internal/app/features/ngo"
	opportunitiesfeature "github.com/dalemusser/eatandearn/internal/app/features/opportunities"
	orgeventsfeature "github.com/dalemusser/eatandearn/internal/app/features/orgevents"
	transactionsfeature "github.com/dalemusser/eatandearn/internal/app/features/transactions"
	"github.com/dalemusser/eatandearn/internal/app/redemption"
	"github.com/dalemusser/eatandearn/internal/app/store/audit"
	"github.com/dalemusser/eatandearn/internal/app/system/auditlog"
	"github.com/dalemusser/eatandearn/internal/app/system/auth"
	"github.com/dalemusser/eatandearn/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// limiterPrune is started by BuildHandler and stopped by Shutdown.
var limiterPrune *workers.LimiterPrune

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. It builds the session manager, the audit
// logger and the credit service, then mounts every feature router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode or on request.
	secure := coreCfg.Env == "prod" || appCfg.SessionSecure
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:   appCfg.AuditLogAuth,
		Ledger: appCfg.AuditLogLedger,
	})
	creditSvc := credits.NewMongo(db, auditLog, redemption.Options{AllowOverdraw: appCfg.AllowQuotaOverdraw}, logger)

	r := chi.NewRouter()
	r.NotFound(apierr.NotFound)
	r.MethodNotAllowed(apierr.MethodNotAllowed)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Get("/forbidden", apierr.Forbidden)

	// Accounts
	accountsHandler := accountsfeature.NewHandler(db, sessionMgr, auditLog, logger)
	r.Post("/signup", accountsHandler.HandleSignup)
	r.Post("/enroll_org", accountsHandler.HandleEnrollOrg)
	r.Post("/login", accountsHandler.HandleLogin)
	r.Post("/logout", accountsHandler.HandleLogout)

	// Keep the sign-in limiter's memory bounded; Shutdown stops the worker.
	limiterPrune = workers.NewLimiterPrune(accountsHandler.Limiter, logger, time.Minute, 10*time.Minute)
	limiterPrune.Start()

	// Role-specific summaries
	dashboardHandler := dashboardfeature.NewHandler(db, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	// Directory listings (/ngos, /organizations, /providers)
	directoryHandler := directoryfeature.NewHandler(db, logger)
	r.Mount("/", directoryfeature.Routes(directoryHandler, sessionMgr))

	// NGO workflow: homeless registration, assignment, completion, redemption
	ngoHandler := ngofeature.NewHandler(db, creditSvc, auditLog, logger)
	r.Mount("/ngo", ngofeature.Routes(ngoHandler, sessionMgr))

	// Organization events
	orgHandler := orgeventsfeature.NewHandler(db, auditLog, logger)
	r.Mount("/org", orgeventsfeature.Routes(orgHandler, sessionMgr))

	// Opportunities board
	oppHandler := opportunitiesfeature.NewHandler(db, logger)
	r.Mount("/opportunities", opportunitiesfeature.Routes(oppHandler, sessionMgr))

	// Transactions JSON API, callable cross-origin
	txnHandler := transactionsfeature.NewHandler(db, creditSvc, logger)
	apiCORS := cors.New(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	})
	r.With(apiCORS.Handler).Mount("/api", transactionsfeature.Routes(txnHandler))

	return r, nil
}
