package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spatial-radio/internal/live"
	"spatial-radio/internal/platform/config"
	"spatial-radio/internal/platform/logger"
	"spatial-radio/internal/platform/metrics"
	"spatial-radio/internal/playback"
	"spatial-radio/internal/radio"
	"spatial-radio/internal/storage"
	"spatial-radio/internal/world"

	"github.com/go-chi/chi/v5"
)

const (
	shutdownTimeout  = 10 * time.Second
	audioInitTimeout = 5 * time.Second
)

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	tuningFile := config.GetEnv("TUNING_FILE", "")
	appName := config.GetEnv("DATA_APP_NAME", "spatial-radio")
	tickRate := config.GetEnvInt("TICK_RATE", 20)
	sampleRate := config.GetEnvInt("AUDIO_SAMPLE_RATE", playback.DefaultSampleRate)

	log := logger.New(logLevel, logFormat)

	tuning, err := config.LoadTuning(tuningFile)
	if err != nil {
		log.Error("failed to load tuning", "file", tuningFile, "error", err)
		os.Exit(1)
	}
	if tickRate < 1 {
		tickRate = 20
	}

	var kv storage.KV
	if g, err := storage.OpenGdata(appName); err != nil {
		log.Warn("persistent storage unavailable, using memory", "error", err)
		kv = storage.NewMemoryKV()
	} else {
		kv = g
	}

	master := radio.NewMasterVolume(1)
	if v, ok, err := storage.LoadMasterVolume(kv); err != nil {
		log.Warn("failed to load master volume", "error", err)
	} else if ok {
		master.Set(v)
	}
	if v, ok := config.LookupEnvFloat("MASTER_VOLUME"); ok {
		master.Set(v)
	}

	met := metrics.New()

	w := world.New(world.Config{
		DefaultVolume:     tuning.Audio.DefaultVolume,
		DefaultStreamURL:  tuning.Audio.DefaultStreamURL,
		MaxURLLength:      tuning.Validation.MaxURLLength,
		RelayRefreshTicks: tuning.World.RelayRefreshTicks,
	}, world.NewFallbackStore(kv), log)

	initCtx, initCancel := context.WithTimeout(context.Background(), audioInitTimeout)
	backend, err := playback.New(initCtx, sampleRate, log)
	initCancel()
	if err != nil {
		log.Error("failed to initialise audio output", "error", err)
		os.Exit(1)
	}

	listeners := radio.NewListenerTracker()
	ctrl := radio.NewController(radio.Config{
		ScanEveryTicks:  tuning.Audio.ScanEveryTicks,
		MaxHearDistance: float64(tuning.Audio.MaxHearDistance),
		Smoothing:       tuning.Audio.Smoothing,
		StopThreshold:   tuning.Audio.StopThreshold,
		MaxURLLength:    tuning.Validation.MaxURLLength,
		PriorityBonus:   tuning.Audio.PriorityBonus,
		ShortCooldown:   tuning.Audio.ShortCooldown,
		LongCooldown:    tuning.Audio.LongCooldown,
	}, w, listeners, master, backend, log, met)

	hub := live.NewBroadcaster(ctrl.Snapshot, log)
	ctrl.SetSink(hub)

	h := radio.NewHandler(ctrl, listeners, master, func(v float64) error {
		return storage.SaveMasterVolume(kv, v)
	}, log)
	wh := world.NewHandler(w, log)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(rw http.ResponseWriter, req *http.Request) {
		met.Handler(func() { met.SetSessions(ctrl.Counts()) }).ServeHTTP(rw, req)
	})
	r.Get("/ws", hub.ServeWS)
	r.Put("/listener", h.SetListener)
	r.Delete("/listener", h.ClearListener)
	r.Get("/sessions", h.ListSessions)
	r.Get("/master-volume", h.GetMasterVolume)
	r.Put("/master-volume", h.SetMasterVolume)
	wh.Routes(r)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	tickCtx, stopTicks := context.WithCancel(context.Background())
	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		ctrl.Run(tickCtx, time.Second/time.Duration(tickRate), w.Tick)
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"tick_rate", tickRate,
		"scan_every_ticks", tuning.Audio.ScanEveryTicks,
		"max_hear_distance", tuning.Audio.MaxHearDistance,
		"master_volume", master.Master(),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	stopTicks()
	<-tickDone
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
