// README: Route registration. Role gating happens here; ownership checks
// live in the services.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/logger"

	"raahi/internal/http/handlers"
	"raahi/internal/http/middleware"
	"raahi/internal/identity"
	"raahi/internal/modules/booking"
	"raahi/internal/modules/cancel"
	"raahi/internal/modules/driver"
	"raahi/internal/modules/payment"
	"raahi/internal/modules/wallet"
)

type RouterDeps struct {
	Verifier identity.Verifier
	Bookings *booking.Service
	Cancels  *cancel.Service
	Drivers  *driver.Service
	Payments *payment.Service
	Wallets  *wallet.Service
	Log      logger.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) { c.String(200, "OK") })

	bookingHandler := handlers.NewBookingHandler(deps.Bookings, deps.Cancels)
	driverHandler := handlers.NewDriverHandler(deps.Drivers)
	paymentHandler := handlers.NewPaymentHandler(deps.Payments)
	walletHandler := handlers.NewWalletHandler(deps.Wallets)

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	owners := api.Group("/bookings", middleware.RequireRole(identity.RoleRider, identity.RoleVendor, identity.RoleAdmin))
	owners.POST("", bookingHandler.Create)
	owners.GET("", bookingHandler.ListMine)
	owners.POST("/:id/payments/advance", paymentHandler.CreateAdvanceOrder)
	owners.POST("/:id/payments/advance/verify", paymentHandler.VerifyAdvance)
	owners.POST("/:id/payments/settlement", paymentHandler.CreateSettlementOrder)
	owners.POST("/:id/payments/settle", paymentHandler.Settle)

	// shared by owner, assigned driver, and admins; handlers authorize
	api.GET("/bookings/:id", bookingHandler.Get)
	api.POST("/bookings/:id/cancel", bookingHandler.Cancel)

	drv := api.Group("/driver", middleware.RequireRole(identity.RoleDriver))
	drv.POST("/register", driverHandler.Register)
	drv.GET("/me", driverHandler.Me)
	drv.PUT("/vehicle_class", driverHandler.SetVehicleClass)
	drv.GET("/bookings", bookingHandler.ListClaimable)
	drv.POST("/bookings/:id/claim", bookingHandler.Claim)
	drv.POST("/bookings/:id/start_pickup", bookingHandler.StartPickup)
	drv.POST("/bookings/:id/arrive", bookingHandler.Arrive)
	drv.POST("/bookings/:id/start", bookingHandler.StartRide)
	drv.POST("/bookings/:id/settlement", bookingHandler.RequestSettlement)
	drv.POST("/bookings/:id/settle_cash", paymentHandler.Settle)
	drv.POST("/bookings/:id/commission", paymentHandler.CreateCommissionOrder)
	drv.POST("/bookings/:id/commission/verify", paymentHandler.VerifyCommission)
	drv.POST("/registration_fee", paymentHandler.CreateRegistrationOrder)
	drv.POST("/registration_fee/verify", paymentHandler.VerifyRegistration)

	api.GET("/wallet", walletHandler.Balance)
	api.GET("/wallet/entries", walletHandler.Entries)

	admin := api.Group("/admin", middleware.RequireRole(identity.RoleAdmin))
	admin.POST("/wallets/adjust", walletHandler.Adjust)

	return r
}
