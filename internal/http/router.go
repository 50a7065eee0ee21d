// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"centraltaxi/internal/http/handlers"
	"centraltaxi/internal/http/middleware"
	"centraltaxi/internal/infra"
	"centraltaxi/internal/logger"
)

// RouterDeps lists everything the console API needs; every field is required.
type RouterDeps struct {
	Verifier infra.TokenVerifier
	Sessions interface {
		handlers.SessionService
		middleware.SessionSource
	}
	Clients      handlers.ClientResolver
	Orders       handlers.OrderService
	Drivers      handlers.DriverService
	Reservations handlers.ReservationService
	Reports      *handlers.ReportHandler
	Log          logger.ILogger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	sessionHandler := handlers.NewSessionHandler(deps.Sessions)
	api.POST("/session/start", sessionHandler.Start)

	op := api.Group("", middleware.RequireSession(deps.Sessions))
	op.POST("/session/logout", sessionHandler.Logout)

	clientHandler := handlers.NewClientHandler(deps.Clients)
	op.GET("/clients/resolve", clientHandler.Resolve)

	orderHandler := handlers.NewOrderHandler(deps.Orders)
	op.POST("/orders", orderHandler.Register)
	op.GET("/orders/pending", orderHandler.ListPending)
	op.GET("/orders/in-progress", orderHandler.ListInProgress)
	op.GET("/orders/:id", orderHandler.Get)
	op.POST("/orders/:id/assign", orderHandler.Assign)
	op.POST("/orders/:id/cancel", orderHandler.Cancel)
	op.POST("/orders/:id/finalize", orderHandler.Finalize)
	op.POST("/orders/:id/voucher", orderHandler.Voucher)
	op.GET("/archive/:date", orderHandler.ListArchived)

	op.GET("/archive/:date/export", deps.Reports.ExportArchive)
	op.GET("/vouchers/next-number", deps.Reports.NextVoucherNumber)
	op.GET("/vouchers/export", deps.Reports.ExportVouchers)
	op.GET("/reports/daily", deps.Reports.Daily)

	driverHandler := handlers.NewDriverHandler(deps.Drivers)
	op.GET("/drivers/:unit", driverHandler.Get)
	op.PUT("/drivers/:unit", driverHandler.Save)
	op.POST("/drivers/:unit/status", driverHandler.SetStatus)
	op.GET("/drivers/:unit/status-history", driverHandler.History)
	op.POST("/drivers/:unit/photo", driverHandler.UploadPhoto)
	op.DELETE("/drivers/:unit/photo", driverHandler.DeletePhoto)

	reservationHandler := handlers.NewReservationHandler(deps.Reservations)
	op.POST("/reservations", reservationHandler.Create)
	op.GET("/reservations", reservationHandler.List)
	op.GET("/reservations/:id", reservationHandler.Get)
	op.POST("/reservations/:id/promote", reservationHandler.Promote)

	return r
}
