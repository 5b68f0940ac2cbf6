// Command reactorctl-ctl runs the operations surface: the Ops API, its
// WebSocket hub, the embedded dashboard, the Historian, and (if a Redis
// store is in use) the Redis Health Monitor, all as one process.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cti-systems/reactorctl/internal/bootstrap"
	"github.com/cti-systems/reactorctl/internal/historian"
	"github.com/cti-systems/reactorctl/internal/opsapi"
	"github.com/cti-systems/reactorctl/internal/plc"
	"github.com/cti-systems/reactorctl/internal/redishealth"
)

func main() {
	storeKind := flag.String("store", "memory", "tag store binding: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "redis address (when -store=redis)")
	listen := flag.String("listen", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "reactorctl.db", "historian SQLite database path")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, rdb, err := bootstrap.OpenStore(ctx, *storeKind, *redisAddr)
	if err != nil {
		log.Fatalf("reactorctl-ctl: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	hist, err := historian.Open(*dbPath)
	if err != nil {
		log.Fatalf("reactorctl-ctl: open historian: %v", err)
	}
	defer hist.Close()

	hub := opsapi.NewHub()
	go hub.Run(ctx)

	handler := &opsapi.Handler{
		Store:     store,
		PLC:       plc.New(),
		Historian: hist,
	}

	var monitor *redishealth.Monitor
	if *storeKind == "redis" {
		monitor = wireRedisHealth(ctx, rdb, hub)
		handler.RedisHealth = monitor
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, hub)
	mux.Handle("/", opsapi.DashboardHandler())

	server := &http.Server{Addr: *listen, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("reactorctl-ctl: listening on %s store=%s", *listen, *storeKind)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("reactorctl-ctl: %v", err)
	}
	log.Println("reactorctl-ctl: shut down")
}

// wireRedisHealth starts a Redis Health Monitor that broadcasts connection
// transitions to every Ops API WebSocket client.
func wireRedisHealth(ctx context.Context, rdb *redis.Client, hub *opsapi.Hub) *redishealth.Monitor {
	monitor := redishealth.New(rdb,
		redishealth.WithOnDown(func() {
			log.Println("reactorctl-ctl: redis connection lost")
			hub.BroadcastEvent("redis.down", nil)
		}),
		redishealth.WithOnUp(func() {
			log.Println("reactorctl-ctl: redis connection restored")
			hub.BroadcastEvent("redis.up", nil)
		}),
	)
	go monitor.Run(ctx)
	return monitor
}
