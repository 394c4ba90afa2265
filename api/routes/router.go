package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aforsev/storefront-backend/api/controllers"
	"github.com/aforsev/storefront-backend/api/middleware"
	"github.com/aforsev/storefront-backend/internal/auth"
	"github.com/aforsev/storefront-backend/internal/cart"
	"github.com/aforsev/storefront-backend/internal/orders"
	products "github.com/aforsev/storefront-backend/internal/products"
	"github.com/aforsev/storefront-backend/internal/whatsapp"
	"github.com/aforsev/storefront-backend/pkg/auth/session"
	"github.com/aforsev/storefront-backend/pkg/config"
	"github.com/aforsev/storefront-backend/pkg/db"
	"github.com/aforsev/storefront-backend/pkg/logger"
	"github.com/aforsev/storefront-backend/pkg/metrics"
	pkgredis "github.com/aforsev/storefront-backend/pkg/redis"
)

// Params bundles everything the router needs.
type Params struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *pkgredis.Client
	SessionManager  session.AccessSessionChecker
	MetricsRegistry *prometheus.Registry
	HTTPMetrics     *metrics.HTTPMetrics

	AuthService     auth.Service
	RegisterService auth.RegisterService
	ProductService  products.Service
	CartService     cart.Service
	OrderService    orders.Service
	WhatsAppService whatsapp.Service
}

// NewRouter assembles the storefront API.
func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
		middleware.CORS(),
	)

	// A nil redis client disables the redis-backed middleware rather than
	// surfacing dependency errors on every request.
	var idemStore pkgredis.IdempotencyStore
	if p.Redis != nil {
		idemStore = p.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(p.Redis, cfg.APIRateLimit.Limit, cfg.APIRateLimit.Window, logg))

		// Public catalog.
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(p.ProductService, logg))
			r.Get("/categories", controllers.ListProductCategories(p.ProductService, logg))
			r.Get("/{productId}", controllers.GetProduct(p.ProductService, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(
				middleware.AuthRateLimit(registerPolicy, p.Redis, logg),
				middleware.Idempotency(idemStore, logg),
			).Post("/register", controllers.AuthRegister(p.RegisterService, logg))
			r.With(
				middleware.AuthRateLimit(loginPolicy, p.Redis, logg),
				middleware.GuestSession(cfg.Session, logg),
			).Post("/login", controllers.AuthLogin(p.AuthService, p.CartService, logg))
			r.Post("/logout", controllers.AuthLogout(p.AuthService, cfg.JWT, logg))
			r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
				r.Get("/me", controllers.AuthProfile(p.AuthService, logg))
				r.Put("/me", controllers.AuthUpdateProfile(p.AuthService, logg))
			})
		})

		// Cart routes serve both guests and authenticated shoppers.
		r.Route("/cart", func(r chi.Router) {
			r.Use(
				middleware.OptionalAuth(cfg.JWT, p.SessionManager, logg),
				middleware.GuestSession(cfg.Session, logg),
			)
			r.Get("/", controllers.CartFetch(p.CartService, logg))
			r.Post("/", controllers.CartAddItem(p.CartService, logg))
			r.Put("/items/{itemId}", controllers.CartUpdateItem(p.CartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(p.CartService, logg))
			r.Delete("/", controllers.CartClear(p.CartService, logg))

			r.With(middleware.Auth(cfg.JWT, p.SessionManager, logg)).
				Post("/merge", controllers.CartMerge(p.CartService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
			r.With(middleware.Idempotency(idemStore, logg)).
				Post("/checkout", controllers.Checkout(p.OrderService, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListOrders(p.OrderService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(p.OrderService, logg))
			})
		})

		r.Route("/whatsapp", func(r chi.Router) {
			r.Get("/webhook", controllers.WhatsAppVerifyWebhook(p.WhatsAppService, logg))
			r.Post("/webhook", controllers.WhatsAppWebhook(p.WhatsAppService, logg))
			r.Get("/status", controllers.WhatsAppStatus(p.WhatsAppService, logg))

			r.Group(func(r chi.Router) {
				r.Use(
					middleware.OptionalAuth(cfg.JWT, p.SessionManager, logg),
					middleware.GuestSession(cfg.Session, logg),
				)
				r.Post("/share-cart", controllers.WhatsAppShareCart(p.WhatsAppService, logg))
				r.Post("/share-product", controllers.WhatsAppShareProduct(p.WhatsAppService, logg))
			})

			r.With(
				middleware.Auth(cfg.JWT, p.SessionManager, logg),
				middleware.RequireRole("admin", logg),
			).Post("/test", controllers.WhatsAppTest(p.WhatsAppService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, p.SessionManager, logg),
				middleware.RequireRole("admin", logg),
			)
			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminListProducts(p.ProductService, logg))
				r.Post("/", controllers.AdminCreateProduct(p.ProductService, logg))
				r.Put("/{productId}", controllers.AdminUpdateProduct(p.ProductService, logg))
				r.Delete("/{productId}", controllers.AdminDeleteProduct(p.ProductService, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(p.OrderService, logg))
				r.Post("/{orderId}/status", controllers.AdminUpdateOrderStatus(p.OrderService, logg))
			})
		})
	})

	return r
}
