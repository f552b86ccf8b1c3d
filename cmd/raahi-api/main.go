// README: Entry point; loads config, wires services, starts the HTTP server
// and the expiry sweeper.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/logger"

	"raahi/internal/config"
	httptransport "raahi/internal/http"
	"raahi/internal/identity"
	"raahi/internal/infra"
	"raahi/internal/maps"
	"raahi/internal/modules/booking"
	"raahi/internal/modules/cancel"
	"raahi/internal/modules/driver"
	"raahi/internal/modules/payment"
	"raahi/internal/modules/wallet"
	"raahi/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	appLog, err := logger.InitLogger(cfg.LogEngine(), "raahi-api", cfg.Log.Mode,
		logger.WithLevel(cfg.LogLevel()))
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db init: %v", err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	// notifications are best-effort; a down broker must not stop the API
	var notifier *notify.Publisher
	amqpConn, amqpCh, err := infra.NewAMQPChannel(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		appLog.Warn("amqp unavailable, notifications disabled", logger.String("error", err.Error()))
	} else {
		defer amqpConn.Close()
		defer amqpCh.Close()
		notifier = notify.NewPublisher(amqpCh, cfg.AMQP.Exchange, appLog)
	}

	var router maps.Router = maps.HaversineEstimator{}
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGoogleEstimator(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		router = g
	}
	estimator := maps.NewCachedEstimator(router, redisClient,
		time.Duration(cfg.Maps.CacheTTL)*time.Second, appLog)

	walletSvc := wallet.NewService(wallet.NewStore(dbPool))

	driverSvc := driver.NewService(driver.NewStore(dbPool))

	bookingStore := booking.NewStore(dbPool)
	bookingSvc := booking.NewService(bookingStore, driverSvc, walletSvc, walletSvc, estimator, notifier, appLog)

	cancelSvc := cancel.NewService(dbPool, bookingStore, walletSvc, notifier, appLog)

	gateway := payment.NewHTTPGateway(cfg.Payment.BaseURL, cfg.Payment.KeyID, cfg.Payment.Secret)
	signer := payment.NewSigner(cfg.Payment.Secret)
	paymentSvc := payment.NewService(gateway, signer, dbPool, bookingSvc, bookingStore,
		walletSvc, driverSvc, notifier, appLog)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Verifier: identity.NewJWTVerifier(cfg.Identity.JWTSecret),
		Bookings: bookingSvc,
		Cancels:  cancelSvc,
		Drivers:  driverSvc,
		Payments: paymentSvc,
		Wallets:  walletSvc,
		Log:      appLog,
	})

	go bookingSvc.RunExpirySweeper(ctx, time.Duration(cfg.Sweep.IntervalSeconds)*time.Second)

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		_ = server.Shutdown(shutdownCtx)
	}()

	appLog.Info("listening", logger.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
