// Package api exposes the HTTP surface of the service.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"societyhub/internal/access"
	"societyhub/internal/auth"
	"societyhub/internal/booking"
	"societyhub/internal/database"
	"societyhub/internal/events"
	"societyhub/internal/maintenance"
	"societyhub/internal/payments"
	"societyhub/internal/polls"
	"societyhub/internal/visitors"
)

// Deps carries everything the router needs.
type Deps struct {
	DB          *database.DB
	Tokens      *auth.Manager
	Bookings    *booking.Service
	Holds       *booking.HoldManager
	Visitors    *visitors.Service
	Events      *events.Service
	Maintenance *maintenance.Service
	Payments    *payments.Service
	Polls       *polls.Service
}

// SetupRouter wires handlers, middleware, and route groups.
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), Observe())

	authHandler := &AuthHandler{DB: deps.DB, Tokens: deps.Tokens}
	profileHandler := &ProfileHandler{DB: deps.DB}
	facilityHandler := &FacilityHandler{DB: deps.DB, Bookings: deps.Bookings}
	bookingHandler := &BookingHandler{Bookings: deps.Bookings, Holds: deps.Holds}
	visitorHandler := &VisitorHandler{Visitors: deps.Visitors}
	eventHandler := &EventHandler{Events: deps.Events}
	maintenanceHandler := &MaintenanceHandler{Maintenance: deps.Maintenance}
	paymentHandler := &PaymentHandler{Payments: deps.Payments}
	pollHandler := &PollHandler{Polls: deps.Polls}
	notificationHandler := &NotificationHandler{DB: deps.DB}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	v1.POST("/auth/login", authHandler.Login)

	authed := v1.Group("/")
	authed.Use(Authenticate(deps.Tokens))
	{
		authed.POST("/auth/password", authHandler.ChangePassword)
		authed.GET("/me", profileHandler.Me)

		facilities := authed.Group("/facilities")
		{
			facilities.GET("", facilityHandler.List)
			facilities.GET("/:id", facilityHandler.Get)
			facilities.GET("/:id/slots", facilityHandler.Slots)

			manage := facilities.Group("")
			manage.Use(Authorize(access.CapManageFacilities))
			{
				manage.POST("", facilityHandler.Create)
				manage.PUT("/:id", facilityHandler.Update)
				manage.DELETE("/:id", facilityHandler.Deactivate)
			}
		}

		bookings := authed.Group("/bookings")
		{
			bookings.POST("", bookingHandler.Create)
			bookings.GET("", bookingHandler.List)
			bookings.GET("/:id", bookingHandler.Get)
			bookings.POST("/:id/cancel", bookingHandler.Cancel)
			bookings.POST("/holds", bookingHandler.Hold)
			bookings.DELETE("/holds", bookingHandler.ReleaseHold)

			decide := bookings.Group("")
			decide.Use(Authorize(access.CapDecideBookings))
			{
				decide.POST("/:id/decision", bookingHandler.Decide)
			}
		}

		visitorRoutes := authed.Group("/visitors")
		{
			visitorRoutes.POST("", visitorHandler.Register)
			visitorRoutes.GET("", visitorHandler.List)

			staff := visitorRoutes.Group("")
			staff.Use(StaffOnly())
			{
				staff.POST("/:id/approve", visitorHandler.Approve)
				staff.POST("/:id/reject", visitorHandler.Reject)
			}

			gate := visitorRoutes.Group("")
			gate.Use(Authorize(access.CapManageVisitorGate))
			{
				gate.POST("/pass/:gate_pass/check-in", visitorHandler.CheckIn)
				gate.POST("/pass/:gate_pass/check-out", visitorHandler.CheckOut)
			}
		}

		eventRoutes := authed.Group("/events")
		{
			eventRoutes.GET("", eventHandler.Upcoming)
			eventRoutes.GET("/mine", eventHandler.Mine)
			eventRoutes.GET("/:id/attendance", eventHandler.Attendance)
			eventRoutes.POST("/:id/register", eventHandler.Register)
			eventRoutes.DELETE("/:id/register", eventHandler.CancelRegistration)

			manage := eventRoutes.Group("")
			manage.Use(Authorize(access.CapManageEvents))
			{
				manage.POST("", eventHandler.Create)
				manage.DELETE("/:id", eventHandler.Deactivate)
			}
		}

		maintenanceRoutes := authed.Group("/maintenance")
		{
			maintenanceRoutes.POST("", maintenanceHandler.File)
			maintenanceRoutes.GET("", maintenanceHandler.List)
			maintenanceRoutes.GET("/:id", maintenanceHandler.Get)
			maintenanceRoutes.POST("/:id/progress", maintenanceHandler.Progress)
		}

		paymentRoutes := authed.Group("/payments")
		{
			paymentRoutes.GET("", paymentHandler.List)
			paymentRoutes.GET("/:id", paymentHandler.Get)
			paymentRoutes.GET("/receipt/:receipt", paymentHandler.ByReceipt)

			record := paymentRoutes.Group("")
			record.Use(Authorize(access.CapRecordPayments))
			{
				record.POST("", paymentHandler.Record)
				record.POST("/:id/settle", paymentHandler.Settle)
			}
		}

		pollRoutes := authed.Group("/polls")
		{
			pollRoutes.GET("", pollHandler.List)
			pollRoutes.GET("/:id/results", pollHandler.Results)
			pollRoutes.POST("/:id/vote", pollHandler.Vote)

			manage := pollRoutes.Group("")
			manage.Use(Authorize(access.CapManagePolls))
			{
				manage.POST("", pollHandler.Create)
				manage.POST("/:id/close", pollHandler.Close)
			}
		}

		notificationRoutes := authed.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.List)
			notificationRoutes.POST("/:id/read", notificationHandler.MarkRead)
			notificationRoutes.POST("/read-all", notificationHandler.MarkAllRead)
		}

		admin := authed.Group("/profiles")
		admin.Use(Authorize(access.CapManageMembers))
		{
			admin.POST("", profileHandler.Create)
			admin.GET("", profileHandler.List)
			admin.PUT("/:id", profileHandler.Update)
		}
	}

	return router
}
