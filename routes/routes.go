package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"huddle/handlers"
	"huddle/middleware"
)

// RegisterBookingRoutes registers booking, invitation and notification endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api")
	api.Use(middleware.OptionalClientAuth())
	{
		api.POST("/bookings", hb.StartBooking)
		api.GET("/bookings/:id", hb.GetBooking)
		api.PUT("/bookings/:id/speed", hb.SetSpeed)
		api.POST("/bookings/:id/cancel", hb.CancelBooking)

		api.POST("/invitations/:id/respond", hb.RespondToInvitation)

		api.GET("/cancel-flows/:id", hb.GetCancelFlow)
		api.POST("/cancel-flows/:id/confirm", hb.ConfirmReschedule)

		api.GET("/sessions/:sessionID/bookings", hb.ListSessionBookings)
		api.GET("/sessions/:sessionID/notifications", hb.DrainNotifications)
	}
}

// RegisterAIRoutes registers the chat endpoint.
func RegisterAIRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api")
	api.Use(middleware.OptionalClientAuth())
	{
		api.POST("/chat", hb.Chat)
	}
}

// RegisterHealthRoute registers the health check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health)
}

// RegisterRoutes installs CORS and every route group.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterBookingRoutes(r, hb)
	RegisterAIRoutes(r, hb)
	RegisterHealthRoute(r, hb)
}
