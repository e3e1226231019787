package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbolis/crowdsourcing/app"
	"github.com/mbolis/crowdsourcing/config"
	"github.com/mbolis/crowdsourcing/database"
	"github.com/mbolis/crowdsourcing/geo"
	"github.com/mbolis/crowdsourcing/httpx"
	"github.com/mbolis/crowdsourcing/intake"
	"github.com/mbolis/crowdsourcing/log"
	"github.com/mbolis/crowdsourcing/media"
	"github.com/mbolis/crowdsourcing/routes"
	"github.com/mbolis/crowdsourcing/store"
)

func main() {
	err := config.LoadEnv()
	if err != nil {
		log.Fatal("main.env:", err)
	}
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	err = log.SetFormat(cfg.LogFormat)
	if err != nil {
		log.Fatal("main.log:", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	version, err := database.SchemaVersion(db)
	if err != nil {
		log.Fatal("main.db.version:", err)
	}
	log.Infof("Database schema at version %d", version)

	st := store.New(db)
	if cfg.AdminUser != "" {
		_, err = st.SaveUser(context.Background(), cfg.AdminUser, cfg.AdminPassword, true)
		if err != nil {
			log.Fatal("main.db.save_admin:", err)
		}
		log.Infof("admin user %q ready", cfg.AdminUser)
	}

	mediaDir, err := media.NewDir(cfg.UploadDir, cfg.MediaPrefix)
	if err != nil {
		log.Fatal("main.media:", err)
	}

	var geocoder geo.Geocoder = geo.Disabled{}
	if cfg.GeocoderURL != "" {
		geocoder = geo.NewNominatim(cfg.GeocoderURL, cfg.GeocoderTimeout, cfg.GeocoderRate)
	}

	app := app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Store:        st,
		Intake: &intake.Service{
			Store:          st,
			Geocoder:       geocoder,
			Media:          mediaDir,
			GeocodeTimeout: cfg.GeocoderTimeout,
		},
		Media: mediaDir,
		Now:   time.Now,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			log.Errorf("main.server.shutdown: %s", err)
		}
	}()

	log.Info("Listening on " + cfg.Url())
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-done
	}
	return err
}
