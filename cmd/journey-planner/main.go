package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/theoremus-urban-solutions/journey-planner/api"
	"github.com/theoremus-urban-solutions/journey-planner/config"
	"github.com/theoremus-urban-solutions/journey-planner/internal"
	"github.com/theoremus-urban-solutions/journey-planner/internal/querylog"
	"github.com/theoremus-urban-solutions/journey-planner/routing"
	"github.com/theoremus-urban-solutions/journey-planner/street"
)

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "oneshot", "oneshot|serve")
	configPath := flag.String("config", os.Getenv("JP_CONFIG"), "config file (default: config.yml, ./config/config.yml)")
	gtfsPath := flag.String("gtfs", "", "GTFS zip path or URL (overrides config)")
	from := flag.String("from", "", "origin as lat,lon or stop id")
	to := flag.String("to", "", "destination as lat,lon or stop id")
	at := flag.String("time", "", "RFC3339 departure time, or arrival time with -arriveBy (default now)")
	arriveBy := flag.Bool("arriveBy", false, "plan to arrive by -time")
	searchWindow := flag.Duration("searchWindow", 0, "search window (default from config)")
	directMode := flag.String("direct", "", "direct street mode, NOT_SET to skip the direct search")
	debug := flag.Bool("debug", false, "keep filtered itineraries and print warnings")
	tripUpdates := flag.String("tripUpdates", "", "GTFS-RT TripUpdates URL or file (overrides config)")
	alerts := flag.String("alerts", "", "GTFS-RT Alerts URL or file (overrides config)")
	flag.Parse()

	internal.InitLogging("[planner] ")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *gtfsPath != "" {
		cfg.Network.GTFSPath = *gtfsPath
	}
	if *tripUpdates != "" {
		cfg.Realtime.TripUpdatesURL = *tripUpdates
	}
	if *alerts != "" {
		cfg.Realtime.AlertsURL = *alerts
	}

	base, err := loadNetwork(cfg.Network)
	if err != nil {
		log.Fatalf("network: %v", err)
	}
	feeds := newFeeds(cfg.Realtime, base)
	snap, err := feeds.load(context.Background())
	if err != nil {
		log.Fatalf("realtime: %v", err)
	}
	router, err := routing.NewRouter(cfg, snap)
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	switch *mode {
	case "oneshot":
		req, err := oneshotRequest(*from, *to, *at, time.Now())
		if err != nil {
			log.Fatalf("request: %v", err)
		}
		req.ArriveBy = *arriveBy
		req.SearchWindow = *searchWindow
		req.Debug = *debug
		if *directMode != "" {
			if req.Modes.Direct, err = street.ParseMode(*directMode); err != nil {
				log.Fatalf("request: %v", err)
			}
		}
		if err := runOneshot(router, req); err != nil {
			log.Fatalf("plan: %v", err)
		}
	case "serve":
		if err := runServe(cfg, router, feeds); err != nil {
			log.Fatalf("serve: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

// loadConfig reads path, or searches the default locations when path is empty.
// JP_PORT overrides the server port.
func loadConfig(path string) (config.AppConfig, error) {
	var cfg config.AppConfig
	if path != "" {
		c, err := config.LoadAppConfigFromFile(path)
		if err != nil {
			return cfg, err
		}
		config.Config = c
	} else if err := config.LoadAppConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
		log.Printf("no config.yml found, using defaults")
		config.Config = config.Default()
	}
	cfg = config.Config
	if p := os.Getenv("JP_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 0 || port > 65535 {
			return cfg, fmt.Errorf("JP_PORT %q is not a port", p)
		}
		cfg.Server.Port = port
	}
	return cfg, nil
}

func runOneshot(router *routing.Router, req *routing.Request) error {
	resp, err := router.Route(context.Background(), req)
	var ve *routing.ValidationError
	if errors.As(err, &ve) {
		resp = &routing.Response{Errors: ve.Errors}
	} else if err != nil {
		return err
	}
	buf, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

func runServe(cfg config.AppConfig, router *routing.Router, feeds *feeds) error {
	var queries api.QueryLogger
	if cfg.QueryLog.Path != "" {
		store, err := querylog.Open(cfg.QueryLog.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		queries = store
	}
	srv := api.NewServer(cfg.Server, router, queries)
	srv.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if every := cfg.Realtime.RefreshInterval(); every > 0 && feeds.enabled() {
		go feeds.refresh(ctx, every, srv.SetSnapshot)
	}
	<-ctx.Done()
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
