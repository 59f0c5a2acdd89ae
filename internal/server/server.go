package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/sokone/internal/config"
	"github.com/dukerupert/sokone/internal/handler"
	"github.com/dukerupert/sokone/internal/middleware"
	"github.com/dukerupert/sokone/internal/snapshot"
	"github.com/dukerupert/sokone/internal/store"
	ws "github.com/dukerupert/sokone/internal/websocket"
)

// Snapshot routes allow this many requests per client IP per minute.
const snapshotRateLimit = 10

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	shopH       *handler.ShopHandler
	productH    *handler.ProductHandler
	cartH       *handler.CartHandler
	viewH       *handler.ViewHandler
	scanH       *handler.ScanHandler
	snapshotH   *handler.SnapshotHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	shopStore := store.NewShopStore(db)
	productStore := store.NewProductStore(db)
	cartStore := store.NewCartStore(db)

	snapshotMgr := snapshot.NewManager(snapshot.Config{
		S3: snapshot.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		},
		Passphrase: cfg.Snapshot.Passphrase,
	}, db, logger.With("component", "snapshot"))

	return &Server{
		db:          db,
		hub:         hub,
		shopH:       handler.NewShopHandler(shopStore, hub, logger.With("component", "shop")),
		productH:    handler.NewProductHandler(productStore, shopStore, hub, cfg.NewProductsHidden, logger.With("component", "product")),
		cartH:       handler.NewCartHandler(cartStore, productStore, shopStore, hub, logger.With("component", "cart")),
		viewH:       handler.NewViewHandler(productStore, shopStore, logger.With("component", "view")),
		scanH:       handler.NewScanHandler(cfg.BaseURL),
		snapshotH:   handler.NewSnapshotHandler(snapshotMgr, hub, logger.With("component", "snapshot")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the server's rate limiter for periodic cleanup.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	// Product registration and inventory actions
	mux.HandleFunc("GET /api/products/form", s.productH.Form)
	mux.HandleFunc("GET /api/products/preview", s.productH.Preview)
	mux.HandleFunc("GET /api/products/export.csv", s.productH.ExportCSV)
	mux.HandleFunc("POST /api/products", s.productH.Create)
	mux.HandleFunc("PUT /api/products/{id}", s.productH.Update)
	mux.HandleFunc("DELETE /api/products/{id}", s.productH.Delete)
	mux.HandleFunc("POST /api/products/{id}/stock", s.productH.AdjustStock)
	mux.HandleFunc("POST /api/products/{id}/hide", s.productH.Hide)
	mux.HandleFunc("POST /api/products/{id}/show", s.productH.Show)

	// Screens
	mux.HandleFunc("GET /api/home", s.viewH.Home)
	mux.HandleFunc("GET /api/inventory", s.viewH.Inventory)
	mux.HandleFunc("GET /api/master", s.viewH.Master)

	// Scanner
	mux.HandleFunc("POST /api/scan", s.scanH.Resolve)
	mux.HandleFunc("GET /scan/result", s.scanH.Redirect)

	// Shopping list
	mux.HandleFunc("GET /api/cart", s.cartH.List)
	mux.HandleFunc("POST /api/cart", s.cartH.Add)
	mux.HandleFunc("POST /api/cart/purchase", s.cartH.Purchase)
	mux.HandleFunc("POST /api/cart/clear", s.cartH.Clear)
	mux.HandleFunc("POST /api/cart/{id}/check", s.cartH.ToggleChecked)
	mux.HandleFunc("DELETE /api/cart/{id}", s.cartH.Delete)

	// Shop master
	mux.HandleFunc("GET /api/shops", s.shopH.List)
	mux.HandleFunc("POST /api/shops", s.shopH.Create)
	mux.HandleFunc("PUT /api/shops/{id}", s.shopH.Update)
	mux.HandleFunc("DELETE /api/shops/{id}", s.shopH.Delete)

	// Snapshots
	mux.HandleFunc("GET /api/snapshot", s.rateLimitedHandler(s.snapshotH.Export))
	mux.HandleFunc("GET /api/snapshot/status", s.snapshotH.Status)
	mux.HandleFunc("POST /api/snapshot/import", s.rateLimitedHandler(s.snapshotH.Import))
	mux.HandleFunc("POST /api/snapshot/upload", s.rateLimitedHandler(s.snapshotH.Upload))
	mux.HandleFunc("POST /api/snapshot/restore", s.rateLimitedHandler(s.snapshotH.Restore))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, snapshotRateLimit, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
