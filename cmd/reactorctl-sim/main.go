// Command reactorctl-sim runs the Physical Simulator (HIL): a fixed-step
// integrator of the plant's thermodynamics that reads actuator commands
// from the Tag Store and writes sensor values back every period.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/cti-systems/reactorctl/internal/bootstrap"
	"github.com/cti-systems/reactorctl/internal/looprt"
	"github.com/cti-systems/reactorctl/internal/noise"
	"github.com/cti-systems/reactorctl/internal/simulator"
)

func main() {
	storeKind := flag.String("store", "memory", "tag store binding: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "redis address (when -store=redis)")
	period := flag.Duration("period", 100*time.Millisecond, "simulator tick period")
	seed := flag.Int64("seed", time.Now().UnixNano(), "noise source seed")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, rdb, err := bootstrap.OpenStore(ctx, *storeKind, *redisAddr)
	if err != nil {
		log.Fatalf("reactorctl-sim: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	rng := noise.New(*seed)
	state := simulator.NewState()

	rt := looprt.New(*period, func(tickCtx context.Context, current, last time.Duration) {
		dtMs := looprt.DtMillis(current, last)
		if err := state.Tick(tickCtx, store, rng, dtMs); err != nil {
			log.Printf("reactorctl-sim: tick error: %v", err)
		}
	})

	log.Printf("reactorctl-sim: running at period=%s store=%s", *period, *storeKind)
	rt.Run(ctx)
	log.Println("reactorctl-sim: shut down")
}
