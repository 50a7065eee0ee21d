// README: Entry point; loads config, wires stores and services, serves the console API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"centraltaxi/internal/config"
	"centraltaxi/internal/guard"
	httptransport "centraltaxi/internal/http"
	"centraltaxi/internal/http/handlers"
	"centraltaxi/internal/infra"
	"centraltaxi/internal/logger"
	"centraltaxi/internal/maps"
	"centraltaxi/internal/modules/client"
	"centraltaxi/internal/modules/driver"
	"centraltaxi/internal/modules/notify"
	"centraltaxi/internal/modules/order"
	"centraltaxi/internal/modules/report"
	"centraltaxi/internal/modules/reservation"
	"centraltaxi/internal/modules/sequence"
	"centraltaxi/internal/modules/voucher"
	"centraltaxi/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg := logger.New(cfg.ServiceName, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("CT_FIREBASE_PROJECT_ID is required")
	}
	loc, err := time.LoadLocation(cfg.Dispatch.TimeZone)
	if err != nil {
		log.Fatalf("time zone %q: %v", cfg.Dispatch.TimeZone, err)
	}

	fb, err := infra.NewFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile, cfg.Firebase.StorageBucket)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}
	defer fb.Close()

	if err := infra.Migrate(cfg.DB.DSN, cfg.DB.MigrationsPath); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redisClient.Close()

	voucherStore := voucher.NewStore(fb.Firestore)
	seqSvc := sequence.NewService(sequence.NewStore(fb.Firestore), voucherStore,
		cfg.Dispatch.GeneralSeqStart, cfg.Dispatch.VoucherSeqFloor, lg.With(logger.String("module", "sequence")))
	voucherSvc := voucher.NewService(voucherStore, seqSvc, lg.With(logger.String("module", "voucher")))

	webhook := notify.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Timeout, lg.With(logger.String("module", "webhook")))
	push := notify.NewPush(fb.Messaging, cfg.Dispatch.MinPushTokenLen, lg.With(logger.String("module", "push")))

	clientSvc := client.NewService(client.NewStore(fb.Firestore), cfg.Dispatch.CountryCode, lg.With(logger.String("module", "client")))
	driverSvc := driver.NewService(
		driver.NewStore(fb.Firestore),
		driver.NewPhotoStore(fb.Bucket, cfg.Firebase.StorageBucket),
		driver.NewAuditStore(dbPool),
		webhook,
		cfg.Dispatch.MinPushTokenLen,
		lg.With(logger.String("module", "driver")),
	)
	reportSvc := report.NewService(report.NewStore(fb.Firestore), loc, lg.With(logger.String("module", "report")))

	deps := order.Deps{
		Clients:        clientSvc,
		Drivers:        driverSvc,
		Authorizations: seqSvc,
		Vouchers:       voucherSvc,
		Push:           push,
		Guard:          guard.NewRedisLocker(redisClient),
		Tally:          reportSvc,
	}
	if cfg.Maps.APIKey != "" {
		geocoder, err := maps.NewGeocoder(cfg.Maps.APIKey, cfg.Maps.Region)
		if err != nil {
			log.Fatalf("geocoder: %v", err)
		}
		deps.Geocoder = geocoder
	} else {
		lg.Warning("CT_MAPS_API_KEY not set; orders without coordinates stay ungeocoded")
	}
	orderSvc := order.NewService(order.NewFirestoreStore(fb.Firestore), deps, loc,
		cfg.Dispatch.RegisterGuardTTL, lg.With(logger.String("module", "order")))

	reservationSvc := reservation.NewService(reservation.NewStore(fb.Firestore), orderSvc, webhook,
		cfg.Dispatch.CountryCode, loc, lg.With(logger.String("module", "reservation")))

	sessions := session.NewManager(
		session.NewFirestoreOperators(fb.Firestore),
		session.NewRedisCache(redisClient),
		fb.Verifier(),
		cfg.Dispatch.SessionTTL,
		lg.With(logger.String("module", "session")),
	)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Verifier:     fb.Verifier(),
		Sessions:     sessions,
		Clients:      clientSvc,
		Orders:       orderSvc,
		Drivers:      driverSvc,
		Reservations: reservationSvc,
		Reports:      handlers.NewReportHandler(reportSvc, report.NewExporter(orderSvc, voucherSvc, loc), voucherSvc, loc),
		Log:          lg,
	})

	server := httptransport.NewServer(cfg.HTTP.Addr, router, lg)
	if err := server.Run(ctx); err != nil {
		lg.Error("http server stopped", logger.Error(err))
		os.Exit(1)
	}
}
