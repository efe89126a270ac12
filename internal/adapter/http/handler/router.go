package handler

import (
	"qr-loyalty-backend/config"
	"qr-loyalty-backend/internal/adapter/http/middleware"
	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	AccountSvc     ports.AccountService
	MerchantSvc    ports.MerchantService
	CategorySvc    ports.CategoryService
	PromotionSvc   ports.PromotionService
	RedemptionSvc  ports.RedemptionService
	RatingSvc      ports.RatingService
	CustomerSvc    ports.CustomerService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	AccountRepo    ports.AccountRepository
	RateLimiter    ports.RateLimiter // nil = rate limiting disabled
	AuditSvc       ports.AuditService // nil = audit logging disabled
	HealthCheckers []ports.HealthChecker
	CORS           config.CORSConfig
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Deep health check over the store and Redis
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		return middleware.RateLimiter(deps.RateLimiter, group, rules[group], deps.Logger)
	}

	authHandler := NewAuthHandler(deps.AuthSvc)
	accountHandler := NewAccountHandler(deps.AccountSvc)
	merchantHandler := NewMerchantHandler(deps.MerchantSvc, deps.PromotionSvc)
	categoryHandler := NewCategoryHandler(deps.CategorySvc)
	promotionHandler := NewPromotionHandler(deps.PromotionSvc)
	redemptionHandler := NewRedemptionHandler(deps.RedemptionSvc)
	ratingHandler := NewRatingHandler(deps.RatingSvc)
	customerHandler := NewCustomerHandler(deps.CustomerSvc)
	dashboardHandler := NewDashboardHandler(deps.ReportingSvc)

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.AccountRepo, deps.Logger)
	customerOnly := middleware.RequireRole(domain.RoleCustomer)
	merchantOnly := middleware.RequireRole(domain.RoleMerchant)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register/customer", rl("auth_register"), authHandler.RegisterCustomer)
		auth.POST("/register/merchant", rl("auth_register"), authHandler.RegisterMerchant)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
		auth.POST("/provider", rl("auth_login"), authHandler.ProviderLogin)
		auth.POST("/refresh", rl("auth_refresh"), authHandler.Refresh)
		auth.POST("/logout", jwtAuth, authHandler.Logout)
		auth.PUT("/password", jwtAuth, rl("auth_login"), authHandler.ChangePassword)
	}

	public := v1.Group("", rl("public"))
	{
		public.GET("/categories", categoryHandler.List)
		public.GET("/categories/tree", categoryHandler.Tree)
		public.GET("/categories/:id", categoryHandler.Get)

		public.GET("/merchants", merchantHandler.List)
		public.GET("/merchants/nearby", merchantHandler.Nearby)
		public.GET("/merchants/:id", merchantHandler.Get)
		public.GET("/merchants/:id/promotions", merchantHandler.ActivePromotions)
		public.GET("/merchants/:id/ratings", ratingHandler.ListForMerchant)

		public.GET("/promotions", promotionHandler.ListValid)
		public.GET("/promotions/:id", promotionHandler.Get)
	}

	// --- Any authenticated account ---
	me := v1.Group("/me", jwtAuth)
	{
		me.GET("", accountHandler.GetMe)
		me.DELETE("", accountHandler.DeleteMe)

		me.PUT("/customer", customerOnly, accountHandler.UpdateCustomer)
		me.GET("/favorites", customerOnly, customerHandler.ListFavorites)
		me.POST("/favorites/:merchantId", customerOnly, customerHandler.AddFavorite)
		me.DELETE("/favorites/:merchantId", customerOnly, customerHandler.RemoveFavorite)
		me.GET("/redemptions", customerOnly, redemptionHandler.CustomerHistory)
		me.GET("/stats", customerOnly, redemptionHandler.CustomerStats)
		me.GET("/ratings", customerOnly, ratingHandler.ListMine)
	}

	v1.POST("/ratings", jwtAuth, customerOnly, rl("rate"), ratingHandler.Rate)

	// --- Merchant self-service ---
	merchant := v1.Group("/merchant", jwtAuth, merchantOnly)
	{
		merchant.POST("/profile", merchantHandler.CreateProfile)
		merchant.GET("/profile", merchantHandler.GetProfile)
		merchant.PUT("/profile", merchantHandler.UpdateProfile)
		merchant.POST("/profile/images", merchantHandler.AddImage)
		merchant.DELETE("/profile/images/:index", merchantHandler.RemoveImage)
		merchant.PUT("/profile/primary-image", merchantHandler.SetPrimaryImage)
		merchant.PUT("/profile/hours", merchantHandler.UpdateOpeningHours)

		merchant.GET("/promotions", promotionHandler.ListMine)
		merchant.POST("/promotions", promotionHandler.Create)
		merchant.PUT("/promotions/:id", promotionHandler.Update)
		merchant.DELETE("/promotions/:id", promotionHandler.Delete)

		merchant.POST("/redemptions", rl("redeem"), redemptionHandler.Redeem)
		merchant.GET("/redemptions", redemptionHandler.MerchantHistory)
		merchant.GET("/stats", dashboardHandler.GetStats)
	}

	// --- Administration ---
	admin := v1.Group("/admin", jwtAuth, adminOnly)
	{
		admin.GET("/accounts", accountHandler.List)
		admin.GET("/accounts/blacklisted", accountHandler.ListBlacklisted)
		admin.GET("/accounts/:id", accountHandler.Get)
		admin.POST("/accounts/:id/blacklist", accountHandler.Blacklist)
		admin.DELETE("/accounts/:id/blacklist", accountHandler.Unblacklist)
		admin.POST("/accounts/:id/verify-email", accountHandler.VerifyEmail)
		admin.DELETE("/accounts/:id", accountHandler.Delete)

		admin.POST("/merchants/:id/verify", merchantHandler.Verify)
		admin.POST("/merchants/:id/blacklist", merchantHandler.Blacklist)
		admin.DELETE("/merchants/:id/blacklist", merchantHandler.Unblacklist)
		admin.DELETE("/merchants/:id", merchantHandler.Delete)

		admin.POST("/categories", categoryHandler.Create)
		admin.PUT("/categories/:id", categoryHandler.Update)
		admin.DELETE("/categories/:id", categoryHandler.Delete)

		admin.DELETE("/promotions/:id", promotionHandler.AdminDelete)
		admin.DELETE("/ratings/:id", ratingHandler.Delete)
	}

	return r
}
