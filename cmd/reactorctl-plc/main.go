// Command reactorctl-plc runs the PLC: the control-law and latched-alarm
// half of the control triad. Every write it makes is forwarded to the
// Historian as an audit record, and alarm/relief edges are logged.
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
	"github.com/cti-systems/reactorctl/internal/looprt"
	"github.com/cti-systems/reactorctl/internal/plc"
)

func main() {
	storeKind := flag.String("store", "memory", "tag store binding: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "redis address (when -store=redis)")
	period := flag.Duration("period", 100*time.Millisecond, "control scan period")
	dbPath := flag.String("db", "reactorctl.db", "historian SQLite database path")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, rdb, err := bootstrap.OpenStore(ctx, *storeKind, *redisAddr)
	if err != nil {
		log.Fatalf("reactorctl-plc: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	hist, err := historian.Open(*dbPath)
	if err != nil {
		log.Fatalf("reactorctl-plc: open historian: %v", err)
	}
	defer hist.Close()

	runID := uuid.New().String()
	if err := hist.CreateRun(runID, "plc", ""); err != nil {
		log.Fatalf("reactorctl-plc: create run: %v", err)
	}

	controller := plc.New().
		WithSink(hist.AuditSinkFor(runID)).
		WithAlarmCallback(func(active bool) {
			log.Printf("reactorctl-plc: alarm %v", active)
		}).
		WithReliefCallback(func(kind string, open bool) {
			log.Printf("reactorctl-plc: %s relief open=%v", kind, open)
		})

	rt := looprt.New(*period, func(tickCtx context.Context, current, last time.Duration) {
		dtMs := looprt.DtMillis(current, last)
		controller.Tick(tickCtx, store, dtMs)
	})

	log.Printf("reactorctl-plc: running run_id=%s period=%s store=%s", runID, *period, *storeKind)
	rt.Run(ctx)
	log.Println("reactorctl-plc: shut down")
}
