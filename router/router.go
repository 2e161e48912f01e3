package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/config"
	"github.com/iqbalhamzah/dinelink/controllers"
	"github.com/iqbalhamzah/dinelink/middlewares"
	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/services"
)

// SetupRouter wires the HTTP surface: a public diner side keyed by the
// table QR token and an /admin side behind JWT auth with role checks.
func SetupRouter(db *gorm.DB, cfg config.Config, tokens *services.TokenService, payments *services.PaymentService) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(db)
	tableCtrl := controllers.NewTableController(db, tokens)
	sessionCtrl := controllers.NewSessionController(db, tokens)
	categoryCtrl := controllers.NewMenuCategoryController(db)
	menuCtrl := controllers.NewMenuController(db)
	orderCtrl := controllers.NewOrderController(db, cfg, tokens)
	paymentCtrl := controllers.NewPaymentController(db, payments)
	receiptCtrl := controllers.NewReceiptController(db, cfg, payments)
	notificationCtrl := controllers.NewNotificationController(db)
	adminCtrl := controllers.NewAdminController(db)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Login is rate limited hard; everything else rides the global limiter.
	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/login", userCtrl.Login)
	}

	// ----------------------------------------------------------------
	//                  DINER ROUTES (QR token, no login)
	// ----------------------------------------------------------------
	r.GET("/tables/:table_id/scan", sessionCtrl.ScanTable)
	r.GET("/tables/:table_id/session", sessionCtrl.GetActiveSession)
	r.GET("/categories", categoryCtrl.GetAllCategories)
	r.GET("/menus", menuCtrl.GetAllMenus)
	r.GET("/menus/:menu_id", menuCtrl.GetMenuByID)
	r.POST("/tables/:table_id/orders", orderCtrl.CreateOrder)
	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)

	// ----------------------------------------------------------------
	//                      STAFF ROUTES (JWT)
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())

	auth.GET("/profile", userCtrl.GetProfile)
	auth.POST("/logout", userCtrl.Logout)

	// User management is admin only.
	staff := auth.Group("/")
	staff.Use(middlewares.RequireRole(models.RoleAdmin))
	{
		staff.POST("/register", userCtrl.Register)
		staff.GET("/users", userCtrl.GetAllUsers)
	}

	// TABLES & QR TOKENS (admin/cashier)
	front := auth.Group("/")
	front.Use(middlewares.RequireRole(models.RoleAdmin, models.RoleCashier))
	{
		front.GET("/tables", tableCtrl.GetAllTables)
		front.POST("/tables", tableCtrl.CreateTable)
		front.GET("/tables/:table_id", tableCtrl.GetTableByID)
		front.PATCH("/tables/:table_id", tableCtrl.UpdateTableStatus)
		front.POST("/tables/:table_id/regenerate-token", tableCtrl.RegenerateToken)
		front.DELETE("/tables/:table_id", tableCtrl.DeleteTable)
		front.GET("/sessions", sessionCtrl.GetAllSessions)
	}

	// MENUS & CATEGORIES (admin)
	catalog := auth.Group("/")
	catalog.Use(middlewares.RequireRole(models.RoleAdmin))
	{
		catalog.POST("/categories", categoryCtrl.CreateCategory)
		catalog.PATCH("/categories/:category_id", categoryCtrl.UpdateCategory)
		catalog.DELETE("/categories/:category_id", categoryCtrl.DeleteCategory)
		catalog.POST("/menus", menuCtrl.CreateMenu)
		catalog.PATCH("/menus/:menu_id", menuCtrl.UpdateMenu)
		catalog.DELETE("/menus/:menu_id", menuCtrl.DeleteMenu)
	}

	// ORDERS (all staff see them; the kitchen works the queue)
	auth.GET("/orders", orderCtrl.GetAllOrders)
	auth.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	auth.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
	auth.GET("/kitchen/queue", orderCtrl.GetKitchenQueue)

	// PAYMENTS (admin/cashier; settlement is rate limited and audited)
	pay := auth.Group("/payments")
	pay.Use(middlewares.RequireRole(models.RoleAdmin, models.RoleCashier))
	pay.Use(middlewares.LogPaymentRequest())
	{
		pay.GET("", paymentCtrl.GetAllPayments)
		pay.GET("/:payment_id", paymentCtrl.GetPaymentByID)

		settle := pay.Group("")
		settle.Use(middlewares.PaymentRateLimiter())
		settle.POST("", paymentCtrl.RecordPayment)
	}

	receipts := auth.Group("/receipts")
	receipts.Use(middlewares.RequireRole(models.RoleAdmin, models.RoleCashier))
	receipts.Use(middlewares.ReceiptLoggerMiddleware())
	{
		receipts.GET("/:payment_id", receiptCtrl.GetReceipt)
	}

	// NOTIFICATIONS (all staff)
	auth.GET("/notifications", notificationCtrl.GetNotifications)

	// DASHBOARD & REPORTS (admin)
	reports := auth.Group("/")
	reports.Use(middlewares.RequireRole(models.RoleAdmin))
	{
		reports.GET("/dashboard/stats", adminCtrl.GetDashboardStats)
		reports.GET("/reports/sales", adminCtrl.GetSalesReport)
	}

	// WebSocket endpoint for live dashboards.
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("", controllers.EventsHandler)
	}

	return r
}
