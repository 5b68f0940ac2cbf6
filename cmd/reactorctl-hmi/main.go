// Command reactorctl-hmi runs the HMI: a read-only renderer that samples
// the Tag Store on a slower cadence than the PLC and persists a snapshot of
// every sample to the historian database.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/cti-systems/reactorctl/internal/bootstrap"
	"github.com/cti-systems/reactorctl/internal/historian"
	"github.com/cti-systems/reactorctl/internal/hmi"
	"github.com/cti-systems/reactorctl/internal/looprt"
)

func main() {
	storeKind := flag.String("store", "memory", "tag store binding: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "redis address (when -store=redis)")
	period := flag.Duration("period", 500*time.Millisecond, "HMI refresh period")
	dbPath := flag.String("db", "reactorctl.db", "historian SQLite database path")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, rdb, err := bootstrap.OpenStore(ctx, *storeKind, *redisAddr)
	if err != nil {
		log.Fatalf("reactorctl-hmi: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	hist, err := historian.Open(*dbPath)
	if err != nil {
		log.Fatalf("reactorctl-hmi: open historian: %v", err)
	}
	defer hist.Close()

	runID := uuid.New().String()
	if err := hist.CreateRun(runID, "hmi", ""); err != nil {
		log.Fatalf("reactorctl-hmi: create run: %v", err)
	}

	display := hmi.New().WithRecorder(hist.RecorderFor(runID))

	rt := looprt.New(*period, func(tickCtx context.Context, current, last time.Duration) {
		dtMs := looprt.DtMillis(current, last)
		display.Tick(tickCtx, store, dtMs)
	})

	log.Printf("reactorctl-hmi: running run_id=%s period=%s store=%s", runID, *period, *storeKind)
	rt.Run(ctx)
	log.Println("reactorctl-hmi: shut down")
}
