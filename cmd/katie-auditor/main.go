// Command katie-auditor runs a third-party auditor that replays a key
// transparency service's updates into condensed prefix and log trees and
// periodically countersigns the log tree's head.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"runtime"
	"time"

	"github.com/ktaudit/ktaudit/auditor"
	"github.com/ktaudit/ktaudit/db"
	"github.com/ktaudit/ktaudit/db/memory"
	"github.com/ktaudit/ktaudit/transport"
	"github.com/ktaudit/ktaudit/tree/prefix"
	"github.com/ktaudit/ktaudit/wire"
)

var (
	Version   = "dev"
	GoVersion = runtime.Version()

	configFile = flag.String("config", "", "Location of config file.")
)

func openRepository(cfg *RepositoryConfig) (db.Repository, error) {
	switch cfg.Kind {
	case "local":
		return db.OpenLocalRepository(cfg.Path)
	case "cloud":
		return db.NewCloudRepository(context.Background(), db.CloudRepositoryConfig{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
			Key:      cfg.Prefix + "auditor-state",
		})
	default:
		return memory.New(), nil
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile | log.LUTC)
	flag.Parse()

	if *configFile == "" {
		log.Fatalf("No config file provided, see --help.")
	}
	config, err := ReadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}

	go metrics(config.Metrics.Addr)

	repo, err := openRepository(config.Repository)
	if err != nil {
		log.Fatalf("Failed to open repository: %v", err)
	}

	a, err := auditor.New(context.Background(), auditor.Config{
		PrivateKey: config.Auditor.privateKey,
		PayloadConfig: wire.SignedPayloadConfig{
			SigningPublicKey: config.Auditor.ktSigningPublicKey,
			VRFPublicKey:     config.Auditor.ktVRFPublicKey,
			AuditorPublicKey: config.Auditor.publicKey,
		},
		Repository:        repo,
		Transport:         transport.NewHTTPTransport(config.Transport.Addr, nil),
		BatchSize:         config.Auditor.BatchSize,
		SignatureInterval: config.Auditor.Signature.interval,
		SignaturePageSize: config.Auditor.Signature.PageSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize auditor: %v", err)
	}

	log.Printf("Auditor started, resuming from total_updates_processed=%d", a.TotalUpdatesProcessed())

	ticker := time.NewTicker(config.Auditor.interval)
	defer ticker.Stop()
	for range ticker.C {
		skippedBefore, signedBefore := a.TicksSkipped(), a.HeadsSigned()
		start := time.Now()
		err := a.RunTick(context.Background())
		tickDur.Observe(time.Since(start).Seconds())
		updatesProcessed.Set(float64(a.TotalUpdatesProcessed()))
		ticksSkipped.Add(float64(a.TicksSkipped() - skippedBefore))
		headsSigned.Add(float64(a.HeadsSigned() - signedBefore))

		if err != nil {
			tickOps.WithLabelValues("false").Inc()
			switch {
			case errors.Is(err, prefix.ErrInvalidProof):
				log.Fatalf("Tick halted on an invalid proof, auditor state can no longer be trusted: %v", err)
			case errors.Is(err, auditor.ErrTransportFailure):
				transportErrors.Inc()
				log.Printf("Tick failed: %v", err)
			case errors.Is(err, auditor.ErrPersistenceFailure):
				persistenceErrors.Inc()
				log.Printf("Tick failed: %v", err)
			default:
				log.Printf("Tick failed: %v", err)
			}
			continue
		}
		tickOps.WithLabelValues("true").Inc()
		log.Printf("Tick complete: total_updates_processed=%d, heads signed this tick=%d", a.TotalUpdatesProcessed(), a.HeadsSigned()-signedBefore)
	}
}
