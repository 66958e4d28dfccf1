package internal

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"rentfleet-api/internal/auth"
	"rentfleet-api/internal/billing"
	"rentfleet-api/internal/config"
	"rentfleet-api/internal/handlers"
	"rentfleet-api/internal/mailer"
	"rentfleet-api/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type Server struct {
	DB         *sql.DB
	Pool       *pgxpool.Pool
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Config     *config.Config
	Mailer     *mailer.Mailer
	Storage    *storage.Store
	Billing    billing.Provider
}

func NewServer(dsn string, cfg *config.Config) *Server {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal("Failed to open database connection:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Database ping failed:", err)
	}

	// Also create a pgxpool for the importer
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal("Failed to create pgxpool:", err)
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		log.Fatal("JWT configuration validation failed:", err)
	}

	store, err := storage.New(cfg.StorageDir)
	if err != nil {
		log.Fatal("Failed to initialize document storage:", err)
	}

	s := &Server{
		DB:         db,
		Pool:       pool,
		Router:     chi.NewRouter(),
		JWTManager: jwtManager,
		Metrics:    NewMetrics(),
		Config:     cfg,
		Mailer:     mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPSender),
		Storage:    store,
		Billing:    billing.NewStubProvider(),
	}

	s.Router.Use(s.recoverPanic)

	// Metrics middleware has to be registered before any route
	if os.Getenv("ENABLE_METRICS") == "true" {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	// Mount public routes (no auth middleware)
	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", func(w http.ResponseWriter, r *http.Request) {
		if err := s.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if _, err := w.Write([]byte("db: ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	// Public auth routes (no JWT required), rate limited per client IP
	s.Router.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/auth/login", s.loginUser)
		r.Post("/auth/signup", s.signup)
		r.Post("/auth/password-reset", s.requestPasswordReset)
		r.Post("/auth/password-reset/confirm", s.confirmPasswordReset)
	})

	// Payment provider webhook (signature-checked, no JWT)
	s.Router.Post("/billing/webhook", s.billingWebhook)

	// Create a protected route group with middleware
	s.Router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.JWTManager))
		r.Use(s.withRLSSession)

		s.mountProtectedRoutes(r)
	})

	return s
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// withRLSSession middleware for company isolation
func (s *Server) withRLSSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		companyID := auth.CompanyIDFromContext(r.Context())
		conn, ctx2, err := withDBConn(r.Context(), s.DB, companyID)
		if err != nil {
			http.Error(w, "db acquire: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if conn != nil {
			defer conn.Close()
		}
		next.ServeHTTP(w, r.WithContext(ctx2))
	})
}

// mountProtectedRoutes mounts all routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router) {
	// Self-service routes
	r.Get("/auth/profile", s.getUserProfile)
	r.Put("/auth/profile", s.updateUserProfile)
	r.Put("/auth/change-password", s.changePassword)
	r.Post("/auth/logout", s.logout)

	// Billing - never behind the trial gate
	r.Post("/billing/checkout-session", auth.MustRole("company_admin")(http.HandlerFunc(s.createCheckoutSession)).(http.HandlerFunc))
	r.Post("/billing/portal-link", auth.MustRole("company_admin")(http.HandlerFunc(s.createPortalLink)).(http.HandlerFunc))
	r.Post("/billing/cancel", auth.MustRole("company_admin")(http.HandlerFunc(s.cancelSubscription)).(http.HandlerFunc))

	// Plans - readable by everyone, managed by the platform
	r.Get("/plans", s.listPlans)
	r.Get("/plans/{id}", s.getPlan)
	r.Post("/plans", auth.MustRole("platform_admin")(http.HandlerFunc(s.createPlan)).(http.HandlerFunc))
	r.Put("/plans/{id}", auth.MustRole("platform_admin")(http.HandlerFunc(s.updatePlan)).(http.HandlerFunc))
	r.Delete("/plans/{id}", auth.MustRole("platform_admin")(http.HandlerFunc(s.deletePlan)).(http.HandlerFunc))

	// Company management - platform admin for cross-company operations
	r.Get("/companies", auth.MustRole("platform_admin", "company_admin")(http.HandlerFunc(s.listCompanies)).(http.HandlerFunc))
	r.Get("/companies/{id}", auth.MustRole("platform_admin", "company_admin")(http.HandlerFunc(s.getCompany)).(http.HandlerFunc))
	r.Get("/companies/{id}/stats", auth.MustRole("platform_admin", "company_admin")(http.HandlerFunc(s.getCompanyStats)).(http.HandlerFunc))
	r.Post("/companies", auth.MustRole("platform_admin")(http.HandlerFunc(s.createCompany)).(http.HandlerFunc))
	r.Put("/companies/{id}", auth.MustRole("platform_admin", "company_admin")(http.HandlerFunc(s.updateCompany)).(http.HandlerFunc))
	r.Delete("/companies/{id}", auth.MustRole("platform_admin")(http.HandlerFunc(s.deleteCompany)).(http.HandlerFunc))

	// User management - company_admin only, with multi-tenant logic
	r.Post("/users", auth.MustRole("company_admin")(http.HandlerFunc(s.createUser)).(http.HandlerFunc))
	r.Get("/users", auth.MustRole("company_admin")(http.HandlerFunc(s.listUsers)).(http.HandlerFunc))
	r.Get("/users/{id}", auth.MustRole("company_admin")(http.HandlerFunc(s.getUser)).(http.HandlerFunc))
	r.Put("/users/{id}", auth.MustRole("company_admin")(http.HandlerFunc(s.updateUser)).(http.HandlerFunc))
	r.Delete("/users/{id}", auth.MustRole("company_admin")(http.HandlerFunc(s.deleteUser)).(http.HandlerFunc))

	// Audit logs and dashboard
	r.Get("/audit-logs", auth.MustRole("company_admin", "platform_admin")(http.HandlerFunc(s.listAuditLogs)).(http.HandlerFunc))
	r.Get("/dashboard", s.getDashboard)

	// Domain resources sit behind the trial gate
	r.Group(func(g chi.Router) {
		g.Use(s.requireActiveSubscription)

		// Vehicles
		g.Get("/vehicles", s.listVehicles)
		g.Get("/vehicles/{id}", s.getVehicle)
		g.Post("/vehicles", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.createVehicle)).(http.HandlerFunc))
		g.Put("/vehicles/{id}", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.updateVehicle)).(http.HandlerFunc))
		g.Delete("/vehicles/{id}", auth.MustRole("company_admin")(http.HandlerFunc(s.deleteVehicle)).(http.HandlerFunc))

		// Tenants (renters)
		g.Get("/tenants", s.listTenants)
		g.Get("/tenants/{id}", s.getTenant)
		g.Post("/tenants", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.createTenant)).(http.HandlerFunc))
		g.Put("/tenants/{id}", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.updateTenant)).(http.HandlerFunc))
		g.Delete("/tenants/{id}", auth.MustRole("company_admin")(http.HandlerFunc(s.deleteTenant)).(http.HandlerFunc))

		// Contracts
		g.Get("/contracts", s.listContracts)
		g.Get("/contracts/{id}", s.getContract)
		g.Post("/contracts", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.createContract)).(http.HandlerFunc))
		g.Put("/contracts/{id}", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.updateContract)).(http.HandlerFunc))
		g.Post("/contracts/{id}/activate", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.activateContract)).(http.HandlerFunc))
		g.Post("/contracts/{id}/close", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.closeContract)).(http.HandlerFunc))
		g.Post("/contracts/{id}/cancel", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.cancelContract)).(http.HandlerFunc))
		g.Delete("/contracts/{id}", auth.MustRole("company_admin")(http.HandlerFunc(s.deleteContract)).(http.HandlerFunc))

		// Maintenances
		g.Get("/maintenances", s.listMaintenances)
		g.Get("/maintenances/{id}", s.getMaintenance)
		g.Post("/maintenances", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.createMaintenance)).(http.HandlerFunc))
		g.Put("/maintenances/{id}", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.updateMaintenance)).(http.HandlerFunc))
		g.Delete("/maintenances/{id}", auth.MustRole("company_admin")(http.HandlerFunc(s.deleteMaintenance)).(http.HandlerFunc))

		// Fines
		g.Get("/fines", s.listFines)
		g.Get("/fines/{id}", s.getFine)
		g.Post("/fines", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.createFine)).(http.HandlerFunc))
		g.Put("/fines/{id}", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.updateFine)).(http.HandlerFunc))
		g.Delete("/fines/{id}", auth.MustRole("company_admin")(http.HandlerFunc(s.deleteFine)).(http.HandlerFunc))

		// Expenses
		g.Get("/expenses", s.listExpenses)
		g.Get("/expenses/{id}", s.getExpense)
		g.Post("/expenses", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.createExpense)).(http.HandlerFunc))
		g.Put("/expenses/{id}", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.updateExpense)).(http.HandlerFunc))
		g.Delete("/expenses/{id}", auth.MustRole("company_admin")(http.HandlerFunc(s.deleteExpense)).(http.HandlerFunc))

		// Suppliers
		g.Get("/suppliers", s.listSuppliers)
		g.Get("/suppliers/{id}", s.getSupplier)
		g.Post("/suppliers", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.createSupplier)).(http.HandlerFunc))
		g.Put("/suppliers/{id}", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.updateSupplier)).(http.HandlerFunc))
		g.Delete("/suppliers/{id}", auth.MustRole("company_admin")(http.HandlerFunc(s.deleteSupplier)).(http.HandlerFunc))

		// Documents
		g.Get("/documents", s.listDocuments)
		g.Get("/documents/{id}/download", s.downloadDocument)
		g.Post("/documents", auth.MustRole("company_admin", "manager")(http.HandlerFunc(s.uploadDocument)).(http.HandlerFunc))
		g.Delete("/documents/{id}", auth.MustRole("company_admin")(http.HandlerFunc(s.deleteDocument)).(http.HandlerFunc))

		// Excel import/export
		importsHandler := handlers.NewImportsHandler(s.Pool)
		g.Post("/imports/excel", auth.MustRole("company_admin", "manager")(http.HandlerFunc(importsHandler.UploadExcel)).(http.HandlerFunc))
		g.Get("/exports/expenses.xlsx", s.exportExpenses)
		g.Get("/exports/fines.xlsx", s.exportFines)
	})
}
