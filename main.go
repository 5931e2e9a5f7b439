package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-dashboard-core/api"
	"github.com/rpupo63/portfolio-dashboard-core/auth"
	"github.com/rpupo63/portfolio-dashboard-core/config"
	"github.com/rpupo63/portfolio-dashboard-core/models"
	"github.com/rpupo63/portfolio-dashboard-core/services"
	"github.com/rpupo63/portfolio-dashboard-core/store"
)

// The sync agent keeps a local copy of the portfolio collection fresh and
// serves it read-only on the status address.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	config.SetupLogging(cfg, os.Stderr)

	session := auth.NewSession(cfg.Token)
	gate := auth.NewGate(session)
	gate.OnUnauthorized(func(p auth.Prompt) {
		log.Warn().Str("flow", p.FlowID).Msg("credential missing or rejected; set PORTFOLIO_TOKEN or PORTFOLIO_USERNAME/PORTFOLIO_PASSWORD")
	})

	opts := []api.Option{api.WithTimeout(cfg.RequestTimeout)}
	var gatherer prometheus.Gatherer
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, api.WithMetrics(api.NewMetrics(reg)))
		gatherer = reg
	}

	client, err := api.New(cfg.APIURL, gate, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing client")
	}

	st := store.New()
	defer st.Close()
	projects := services.NewProjectService(client, st)
	loader := services.NewLoader(projects.Refresh)
	loader.OnChange(func(s services.LoadState) {
		log.Debug().Str("state", s.String()).Msg("sync state changed")
	})

	ctx, cancel := context.WithCancel(auth.WithFlow(context.Background()))
	defer cancel()

	if cfg.Username != "" && session.Token() == "" {
		if err := client.Login(ctx, cfg.Username, cfg.Password); err != nil {
			log.Error().Err(err).Msg("login failed, continuing with anonymous reads")
		}
	}

	errChannel := make(chan error, 1)

	var server *statusServer
	if cfg.StatusAddr != "" {
		s := newStatusServer(cfg.StatusAddr, st, loader, gatherer)
		server = &s
		go server.Start(errChannel)
	}

	go listenToInterrupt(errChannel)
	go syncLoop(ctx, loader, cfg.RefreshInterval)

	fatalErr := <-errChannel
	log.Info().Msgf("Stopping agent: %v", fatalErr)
	cancel()

	if server != nil {
		server.ShutdownGracefully(10 * time.Second)
	}
}

// syncLoop refreshes once, then every interval. A zero interval refreshes once.
func syncLoop(ctx context.Context, loader *services.Loader[[]models.Project], interval time.Duration) {
	refresh := func() {
		projects, err := loader.Load(ctx)
		if err != nil {
			log.Error().Err(err).Msg("refresh failed")
			return
		}
		log.Info().Int("count", len(projects)).Msg("collection refreshed")
	}

	refresh()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
