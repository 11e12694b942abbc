package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nasidaunjeruk/pos/internal/apperr"
	"github.com/nasidaunjeruk/pos/internal/cart"
	"github.com/nasidaunjeruk/pos/internal/config"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/ledger"
	"github.com/nasidaunjeruk/pos/internal/menu"
	"github.com/nasidaunjeruk/pos/internal/remotesync"
	"github.com/nasidaunjeruk/pos/internal/router"
	"github.com/nasidaunjeruk/pos/internal/service"
	"github.com/nasidaunjeruk/pos/internal/settings"
	"github.com/nasidaunjeruk/pos/internal/storage"
	"github.com/nasidaunjeruk/pos/internal/ws"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		// Fallback to FixedZone when tzdata is missing
		loc = time.FixedZone("WIB", 7*3600)
	}

	store, closeStore, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.StorageDriver,
		DataDir:     cfg.DataDir,
		DatabaseURL: cfg.DatabaseURL,
		MySQLDSN:    cfg.MySQLDSN,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStore()
	logrus.WithField("driver", cfg.StorageDriver).Info("storage ready")

	st := settings.NewService(store)
	if err := st.Load(ctx); err != nil {
		logrus.WithError(err).Warn("settings not restored, using defaults")
	}
	if cfg.OwnerPIN != "" && st.Get().OwnerPINHash == "" {
		switch err := st.SetOwnerPIN(ctx, cfg.OwnerPIN); {
		case apperr.IsPersistence(err):
			logrus.WithError(err).Warn("owner pin set for this run only")
		case err != nil:
			return fmt.Errorf("bootstrap owner pin: %w", err)
		default:
			logrus.Info("owner pin set from OWNER_PIN")
		}
	}

	policy, err := cart.PolicyByName(cfg.DiscountPolicy)
	if err != nil {
		return fmt.Errorf("discount policy: %w", err)
	}

	catalog := menu.Default()
	hub := ws.NewHub()

	endpoint := func() string {
		if cfg.SyncURL != "" {
			return cfg.SyncURL
		}
		return st.ScriptURL()
	}
	syncer := remotesync.New(store, remotesync.NewHTTPSender(cfg.SyncTimeout), endpoint, remotesync.Options{
		Interval:   cfg.SyncInterval,
		MaxRetries: cfg.SyncMaxRetries,
	})
	syncer.OnChange = func(s remotesync.Stats) {
		hub.Publish(enum.TopicSync, enum.EventSyncStatus, s)
	}
	if err := syncer.Load(ctx); err != nil {
		logrus.WithError(err).Warn("sync queue not restored")
	}

	limits := func() (decimal.Decimal, decimal.Decimal) {
		s := st.Get()
		return s.MinOrderAmount, s.MaxOrderAmount
	}
	pos := service.NewPOS(catalog, cart.NewManager(catalog, policy, store), ledger.New(store), syncer, hub, limits)
	if err := pos.Restore(ctx); err != nil {
		logrus.WithError(err).Warn("cart or ledger not fully restored")
	}

	go hub.Run(ctx)
	go syncer.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, pos, st, hub, loc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":     cfg.Port,
			"discount": policy.Name(),
		}).Info("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
