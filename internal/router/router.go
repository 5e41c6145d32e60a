package router

import (
	"database/sql"
	"net/http"
	"path/filepath"

	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/services"
	"storefront/internal/session"
	"storefront/internal/views"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func SetupRouter(db *sql.DB, cfg config.Config, logger zerolog.Logger) (*mux.Router, error) {
	renderer, err := views.New()
	if err != nil {
		return nil, err
	}

	if cfg.UsesDefaultSecret() {
		logger.Warn().Msg("SESSION_SECRET not set, using default key")
	}
	sessions := session.NewManager(cfg.SessionSecret, cfg.SessionSecure, logger)

	base := handlers.Base{
		Sessions: sessions,
		Views:    renderer,
		Logger:   logger,
	}
	uploads := services.NewUploadService(cfg.UploadDir, logger)
	reviews := services.NewReviewService(cfg.ReviewsDir, logger)

	homeHandler := handlers.NewHomeHandler(db, base)
	authHandler := handlers.NewAuthHandler(db, base)
	productHandler := handlers.NewProductHandler(db, uploads, cfg.MaxUploadBytes, base)
	cartHandler := handlers.NewCartHandler(db, base)
	reviewHandler := handlers.NewReviewHandler(reviews, base)

	loginRequired := middleware.LoginRequired(sessions, "Please login first!")
	adminRequired := middleware.AdminRequired(sessions)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.ErrorHandling(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.PerformanceMonitoring(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimiter.Middleware())
	r.Use(middleware.Sessions(sessions))

	r.HandleFunc("/", homeHandler.Home).Methods("GET")
	r.Handle("/dashboard", loginRequired(http.HandlerFunc(homeHandler.Dashboard))).Methods("GET")

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", authHandler.RegisterForm).Methods("GET")
	auth.HandleFunc("/register", authHandler.Register).Methods("POST")
	auth.HandleFunc("/login", authHandler.LoginForm).Methods("GET")
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")
	auth.HandleFunc("/logout", authHandler.Logout).Methods("GET")

	r.Handle("/products", http.RedirectHandler("/products/", http.StatusMovedPermanently)).Methods("GET")

	products := r.PathPrefix("/products").Subrouter()
	products.HandleFunc("/", productHandler.List).Methods("GET")
	products.HandleFunc("/product/{id:[0-9]+}/reviews", reviewHandler.List).Methods("GET")
	products.HandleFunc("/product/{id:[0-9]+}/reviews", reviewHandler.Submit).Methods("POST")

	cart := products.PathPrefix("/cart").Subrouter()
	cart.Use(loginRequired)
	cart.HandleFunc("", cartHandler.View).Methods("GET")
	cart.HandleFunc("/add/{id:[0-9]+}", cartHandler.Add).Methods("POST")
	cart.HandleFunc("/update/{id:[0-9]+}", cartHandler.Update).Methods("POST")
	cart.HandleFunc("/remove/{id:[0-9]+}", cartHandler.Remove).Methods("POST")

	admin := products.PathPrefix("/admin").Subrouter()
	admin.Use(loginRequired)
	admin.Use(adminRequired)
	admin.HandleFunc("", productHandler.AdminDashboard).Methods("GET")
	admin.HandleFunc("/add", productHandler.AddForm).Methods("GET")
	admin.HandleFunc("/add", productHandler.Add).Methods("POST")
	admin.HandleFunc("/edit/{id:[0-9]+}", productHandler.EditForm).Methods("GET")
	admin.HandleFunc("/edit/{id:[0-9]+}", productHandler.Edit).Methods("POST")
	admin.HandleFunc("/delete/{id:[0-9]+}", productHandler.Delete).Methods("POST")

	r.PathPrefix("/static/uploads/").Handler(
		http.StripPrefix("/static/uploads/", http.FileServer(http.Dir(filepath.Clean(cfg.UploadDir)))),
	).Methods("GET")
	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))),
	).Methods("GET")

	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r, nil
}
