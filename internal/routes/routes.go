package routes

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/handlers"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/middleware"
)

// CORSMiddleware tells the browser the storefront frontend may call us.
func CORSMiddleware() gin.HandlerFunc {
	allowedOrigin := os.Getenv("FRONTEND_ORIGIN")
	if allowedOrigin == "" {
		allowedOrigin = "http://localhost:5173"
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// The browser sends an empty preflight request first to check
		// permissions. Reply with "204 No Content".
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers, mediaRoot string) *gin.Engine {
	router := gin.Default()

	router.Use(CORSMiddleware())

	// Uploaded media (product images, request attachments)
	router.Static("/media", mediaRoot)

	// --- Ping Route (Public) ---
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong!"})
	})

	// --- Auth Routes (Public) ---
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
	router.POST("/portal/login", h.PortalLogin)

	// --- Storefront (Public) ---
	store := router.Group("/store")
	{
		store.GET("/products", h.GetProducts)
		store.GET("/products/:id", h.GetProductByID)
		store.GET("/categories", h.GetAllCategories)
	}

	// --- Storefront (Login Required) ---
	storeAuth := router.Group("/store")
	storeAuth.Use(middleware.AuthMiddleware())
	{
		storeAuth.GET("/cart", h.GetCart)
		storeAuth.POST("/cart/update", h.UpdateItem)
		storeAuth.POST("/checkout", h.ProcessOrder)
		storeAuth.GET("/orders", h.GetMyOrders)
	}

	// --- Service Requests ---
	// Submission is open to guests; a valid token still links the
	// request to the caller's profile.
	services := router.Group("/services")
	services.Use(middleware.OptionalAuthMiddleware())
	{
		services.POST("/requests", h.SubmitRequest)
	}

	servicesAuth := router.Group("/services")
	servicesAuth.Use(middleware.AuthMiddleware())
	{
		servicesAuth.GET("/my-requests", h.GetMyRequests)
		servicesAuth.GET("/requests/:id/chat", h.GetMyRequestChat)
		servicesAuth.POST("/requests/:id/chat", h.PostMyRequestChat)
	}

	// --- Staff Portal ---
	// Two gates: a token check that redirects to the portal login, then
	// a per-request staff flag check against the database.
	portal := router.Group("/portal")
	portal.Use(middleware.PortalGateMiddleware())
	portal.Use(middleware.StaffMiddleware(h.DB))
	{
		portal.GET("/dashboard", h.GetDashboardStats)
		portal.GET("/activity", h.GetActivityLogs)

		portal.POST("/products", h.CreateProduct)
		portal.PUT("/products/:id", h.UpdateProduct)
		portal.DELETE("/products/:id", h.DeleteProduct)
		portal.POST("/products/:id/images", h.UploadProductImage)
		portal.DELETE("/products/:id/images/:image_id", h.DeleteProductImage)

		portal.POST("/categories", h.CreateCategory)
		portal.PUT("/categories/:id", h.UpdateCategory)
		portal.DELETE("/categories/:id", h.DeleteCategory)
		portal.POST("/categories/:id/move", h.MoveCategory)

		portal.GET("/orders", h.GetAllOrders)
		portal.PATCH("/orders/:id", h.UpdateOrderStatus)

		portal.GET("/requests", h.GetAllRequests)
		portal.GET("/requests/:id/chat", h.GetRequestChat)
		portal.POST("/requests/:id/chat", h.PostRequestChat)
	}

	return router
}
