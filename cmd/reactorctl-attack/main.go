// Command reactorctl-attack runs one adversarial campaign against a Tag
// Store: freeze, spike, or latency-proxy. Parameters are flag-driven (or
// loaded from a YAML preset file) rather than prompted interactively, so
// campaigns can be scripted and checked into a repo.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/cti-systems/reactorctl/internal/attacker"
	"github.com/cti-systems/reactorctl/internal/bootstrap"
	"github.com/cti-systems/reactorctl/internal/historian"
	"github.com/cti-systems/reactorctl/internal/noise"
	"github.com/cti-systems/reactorctl/internal/tagstore"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("reactorctl-attack: usage: reactorctl-attack <freeze|spike|latency-proxy> [flags]")
	}
	sub, args := os.Args[1], os.Args[2:]

	switch sub {
	case "freeze":
		runFreeze(args)
	case "spike":
		runSpike(args)
	case "latency-proxy":
		runLatencyProxy(args)
	default:
		log.Fatalf("reactorctl-attack: unknown subcommand %q (want freeze, spike, or latency-proxy)", sub)
	}
}

type commonFlags struct {
	storeKind string
	redisAddr string
	dbPath    string
	targets   string
	duration  time.Duration
	preset    string
	seed      int64
}

func bindCommon(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.storeKind, "store", "memory", "tag store binding: memory or redis")
	fs.StringVar(&c.redisAddr, "redis-addr", "localhost:6379", "redis address (when -store=redis)")
	fs.StringVar(&c.dbPath, "db", "reactorctl.db", "historian SQLite database path")
	fs.StringVar(&c.targets, "targets", "", "comma-separated tag names or unique substrings")
	fs.DurationVar(&c.duration, "duration", 30*time.Second, "campaign duration before auto-terminate")
	fs.StringVar(&c.preset, "preset", "", "YAML campaign preset file (overrides target/param flags)")
	fs.Int64Var(&c.seed, "seed", time.Now().UnixNano(), "noise source seed")
	return c
}

func (c *commonFlags) targetList() []string {
	if c.targets == "" {
		return nil
	}
	parts := strings.Split(c.targets, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// setup opens the Tag Store and Historian named by the common flags and
// registers a new run, shared by every attacker subcommand.
func setup(ctx context.Context, common *commonFlags, kind string) (tagstore.Store, *historian.Historian, string) {
	store, rdb, err := bootstrap.OpenStore(ctx, common.storeKind, common.redisAddr)
	if err != nil {
		log.Fatalf("reactorctl-attack: %v", err)
	}
	if rdb != nil {
		context.AfterFunc(ctx, func() { rdb.Close() })
	}

	hist, err := historian.Open(common.dbPath)
	if err != nil {
		log.Fatalf("reactorctl-attack: open historian: %v", err)
	}

	runID := uuid.New().String()
	if err := hist.CreateRun(runID, "attack-"+kind, ""); err != nil {
		log.Fatalf("reactorctl-attack: create run: %v", err)
	}
	return store, hist, runID
}

func runFreeze(args []string) {
	fs := flag.NewFlagSet("freeze", flag.ExitOnError)
	common := bindCommon(fs)
	value := fs.Float64("value", 0, "value to hold every target at (omit to capture each target's current reading)")
	fs.Parse(args)

	valueGiven := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "value" {
			valueGiven = true
		}
	})

	targets := common.targetList()
	if common.preset != "" {
		preset, err := attacker.LoadPreset(common.preset)
		if err != nil {
			log.Fatalf("reactorctl-attack: %v", err)
		}
		if preset.Freeze == nil {
			log.Fatalf("reactorctl-attack: preset %s has no freeze section", common.preset)
		}
		targets = preset.Targets
		*value = preset.Freeze.Value
		valueGiven = true
		applyPresetDuration(common, preset.Duration)
	}
	if len(targets) == 0 {
		log.Fatalf("reactorctl-attack: freeze requires -targets or a preset")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, hist, runID := setup(ctx, common, "freeze")
	defer hist.Close()

	var valuePtr *float64
	if valueGiven {
		valuePtr = value
	}
	campaign, skipped := attacker.NewFreezeCampaign(runID, store, targets, valuePtr)
	logSkipped(skipped)
	runCampaign(ctx, campaign, hist, runID, attacker.FreezePeriod, common.duration)
}

func runSpike(args []string) {
	fs := flag.NewFlagSet("spike", flag.ExitOnError)
	common := bindCommon(fs)
	mode := fs.String("mode", "absolute", "spike mode: absolute, multiply, or offset")
	abs := fs.Float64("abs", 0, "absolute mode: written value")
	factor := fs.Float64("factor", 1, "multiply mode: multiplier on current value")
	delta := fs.Float64("delta", 0, "offset mode: added to current value")
	pPerSec := fs.Float64("p-per-sec", 0.05, "per-second probability of starting a spike")
	spikeLenMs := fs.Float64("spike-len-ms", 2000, "spike duration in milliseconds")
	writeIntervalMs := fs.Float64("write-interval-ms", 100, "write cadence while spiking, in milliseconds")
	fs.Parse(args)

	targets := common.targetList()
	params := attacker.SpikeParams{
		Mode: attacker.SpikeMode(*mode), Abs: *abs, Factor: *factor, Delta: *delta,
		PPerSec: *pPerSec, SpikeLenMs: *spikeLenMs, WriteIntervalMs: *writeIntervalMs,
	}
	if common.preset != "" {
		preset, err := attacker.LoadPreset(common.preset)
		if err != nil {
			log.Fatalf("reactorctl-attack: %v", err)
		}
		if preset.Spike == nil {
			log.Fatalf("reactorctl-attack: preset %s has no spike section", common.preset)
		}
		targets = preset.Targets
		sp := preset.Spike
		params = attacker.SpikeParams{
			Mode: attacker.SpikeMode(sp.Mode), Abs: sp.Abs, Factor: sp.Factor, Delta: sp.Delta,
			PPerSec: sp.PPerSec, SpikeLenMs: sp.SpikeLenMs, WriteIntervalMs: sp.WriteIntervalMs,
		}
		applyPresetDuration(common, preset.Duration)
	}
	if len(targets) == 0 {
		log.Fatalf("reactorctl-attack: spike requires -targets or a preset")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, hist, runID := setup(ctx, common, "spike")
	defer hist.Close()

	rng := noise.New(common.seed)
	campaign, skipped := attacker.NewSpikeCampaign(runID, store, targets, params, rng)
	logSkipped(skipped)
	runCampaign(ctx, campaign, hist, runID, attacker.SpikePeriod, common.duration)
}

func runLatencyProxy(args []string) {
	fs := flag.NewFlagSet("latency-proxy", flag.ExitOnError)
	common := bindCommon(fs)
	sampleMs := fs.Float64("sample-ms", 100, "per-target sampling cadence in milliseconds")
	baseLatMs := fs.Float64("base-lat-ms", 200, "base injected latency in milliseconds")
	jitterMs := fs.Float64("jitter-ms", 50, "jitter applied to the base latency, in milliseconds")
	dropProb := fs.Float64("drop-prob", 0, "probability an executed write is dropped")
	fs.Parse(args)

	targets := common.targetList()
	params := attacker.LatencyProxyParams{
		SampleMs: *sampleMs, BaseLatMs: *baseLatMs, JitterMs: *jitterMs, DropProb: *dropProb,
	}
	if common.preset != "" {
		preset, err := attacker.LoadPreset(common.preset)
		if err != nil {
			log.Fatalf("reactorctl-attack: %v", err)
		}
		if preset.Latency == nil {
			log.Fatalf("reactorctl-attack: preset %s has no latency_proxy section", common.preset)
		}
		targets = preset.Targets
		lp := preset.Latency
		params = attacker.LatencyProxyParams{
			SampleMs: lp.SampleMs, BaseLatMs: lp.BaseLatMs, JitterMs: lp.JitterMs, DropProb: lp.DropProb,
		}
		applyPresetDuration(common, preset.Duration)
	}
	if len(targets) == 0 {
		log.Fatalf("reactorctl-attack: latency-proxy requires -targets or a preset")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, hist, runID := setup(ctx, common, "latency-proxy")
	defer hist.Close()

	rng := noise.New(common.seed)
	campaign, skipped := attacker.NewLatencyProxyCampaign(runID, store, targets, params, rng)
	logSkipped(skipped)
	runCampaign(ctx, campaign, hist, runID, attacker.LatencyProxyPeriod, common.duration)
}

func applyPresetDuration(common *commonFlags, raw string) {
	if raw == "" {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("reactorctl-attack: invalid preset duration %q: %v", raw, err)
	}
	common.duration = d
}

func logSkipped(skipped []string) {
	if len(skipped) > 0 {
		log.Printf("reactorctl-attack: skipped unresolved targets: %s", strings.Join(skipped, ", "))
	}
}

func runCampaign(ctx context.Context, campaign *attacker.Campaign, hist *historian.Historian, runID string, period, duration time.Duration) {
	campaign.WithSink(hist.SummarySinkFor(runID))

	runCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	log.Printf("reactorctl-attack: starting campaign run_id=%s duration=%s", runID, duration)
	campaign.Run(runCtx, period)

	summary := campaign.Terminate()
	log.Printf("reactorctl-attack: campaign %s finished: attempted=%d failed=%d dropped=%d pending=%d state=%s",
		summary.AttackerKind, summary.WritesAttempted, summary.WritesFailed, summary.WritesDropped,
		summary.PendingAtEnd, summary.State)
}
