package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dealwatch/config"
	"dealwatch/httputil"
	"dealwatch/hubspot"
	"dealwatch/logging"
	"dealwatch/lookup"
	"dealwatch/mailer"
	"dealwatch/report"
	"dealwatch/scheduler"
	"dealwatch/server"
	"dealwatch/storage"
	"dealwatch/workers"
)

var (
	runReport    = flag.String("report", "", "Run one report (daily, weekly, ...) and exit")
	buildLookups = flag.Bool("build-lookups", false, "Build lookup table files from CRM metadata and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("dealwatch.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting dealwatch...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.HubSpot.Token == "" {
		log.Fatal("HUBSPOT_TOKEN is not set")
	}

	ctx := context.Background()

	clients := httputil.NewClients(cfg.HubSpot.Token, cfg.HubSpot.HistoryTimeout)
	crm := hubspot.NewClient(&cfg.HubSpot, clients)

	if *buildLookups {
		if err := lookup.Bootstrap(ctx, crm, &cfg.Lookup); err != nil {
			log.Fatalf("Lookup bootstrap failed: %v", err)
		}
		return
	}

	tables, err := lookup.Load(&cfg.Lookup)
	if err != nil {
		log.Fatalf("Failed to load lookup tables: %v", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open run store: %v", err)
	}
	defer store.Close()
	log.Printf("Run store: %s", cfg.DBPath)

	pipeline := report.NewPipeline(crm, tables, mailer.New(&cfg.Mail), store, cfg.HubSpot.DealDelay)

	if cfg.Archive.Bucket != "" {
		archiver, err := storage.NewArchiver(ctx, cfg.Archive)
		if err != nil {
			log.Fatalf("Failed to init CSV archiver: %v", err)
		}
		pipeline.SetArchiver(archiver)
		log.Printf("Archiving report CSVs to bucket %s", cfg.Archive.Bucket)
	}

	// One-shot mode
	if *runReport != "" {
		rep, ok := cfg.Reports[*runReport]
		if !ok {
			log.Fatalf("Unknown report: %s", *runReport)
		}
		if err := pipeline.Run(ctx, rep); err != nil {
			log.Fatalf("Report failed: %v", err)
		}
		log.Println("Report complete!")
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reportWorkers := make(map[string]*workers.ReportWorker, len(cfg.Reports))
	triggerables := make(map[string]scheduler.Triggerable, len(cfg.Reports))
	serverWorkers := make(map[string]server.Triggerable, len(cfg.Reports))
	for id, rep := range cfg.Reports {
		w := workers.NewReportWorker(pipeline, rep)
		reportWorkers[id] = w
		triggerables[id] = w
		serverWorkers[id] = w
		go w.Run(ctx)
	}
	log.Printf("Started %d report workers", len(reportWorkers))

	sched := scheduler.New(cfg.Reports, triggerables)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	srv := server.New(serverWorkers, store)
	go func() {
		if err := srv.Listen(cfg.Server.Addr); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	_ = srv.Shutdown()
	log.Println("Goodbye!")
}
