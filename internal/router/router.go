package router

import (
	"log"
	"net/http"

	"github.com/eightam/preorder-api/internal/config"
	"github.com/eightam/preorder-api/internal/database"
	"github.com/eightam/preorder-api/internal/enum"
	"github.com/eightam/preorder-api/internal/handler"
	"github.com/eightam/preorder-api/internal/notify"
	"github.com/eightam/preorder-api/internal/service"
	"github.com/eightam/preorder-api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Order events go to events; pass the hub (or a notify.Multi including it)
// so kitchen and customer sockets see them.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, events notify.Publisher) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	estimator := service.NewWaitEstimator(cfg.KitchenParallelism)
	orderService := service.NewOrderService(
		pool,
		func(db database.DBTX) service.OrderStore {
			return database.New(db)
		},
		service.OrderServiceConfig{
			Codes:           service.NewCodeGenerator(cfg.OrderCodePrefix, cfg.OrderCodeRange),
			Sequence:        queries,
			Estimator:       estimator,
			Events:          events,
			PayOnPickupHold: cfg.PayOnPickupHold,
		},
	)

	// Menu
	menuHandler := handler.NewMenuHandler(queries, estimator)
	r.Route("/items", menuHandler.RegisterRoutes)

	// Orders (cancel requires the receipt issued at checkout)
	orderHandler := handler.NewOrderHandler(orderService, queries, cfg.ReceiptSecret)
	r.Route("/orders", orderHandler.RegisterRoutes)

	// Payments
	paymentHandler := handler.NewPaymentHandler(orderService)
	r.Route("/payments", paymentHandler.RegisterRoutes)

	// Kitchen board and item management
	kitchenHandler := handler.NewKitchenHandler(queries)
	itemHandler := handler.NewItemHandler(queries)
	r.Route("/kitchen", func(r chi.Router) {
		kitchenHandler.RegisterRoutes(r)
		r.Route("/items", itemHandler.RegisterRoutes)
	})

	// Reports
	reportsHandler := handler.NewReportsHandler(queries)
	r.Route("/reports", reportsHandler.RegisterRoutes)

	// WebSocket routes
	r.Get("/ws/kitchen", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, enum.RoomKitchen, w, r)
	})
	r.Get("/ws/orders/{code}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, ws.OrderRoom(chi.URLParam(r, "code")), w, r)
	})

	log.Println("Router initialized with all handlers")
	return r
}
