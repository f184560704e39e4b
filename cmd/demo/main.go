// =============================================================================
// DEMO - One Proposer, N Acceptors, One Process
// =============================================================================
//
// Starts an in-memory cluster, submits the given values one by one and
// prints what was chosen for each.
//
//   go run ./cmd/demo -acceptors 5 -values 10,20,30
//   PAXOS_LOG_LEVEL=debug go run ./cmd/demo
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/senutpal/singlepaxos/internal/config"
	"github.com/senutpal/singlepaxos/internal/node"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("demo: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flag.IntVar(&cfg.Acceptors, "acceptors", cfg.Acceptors, "number of acceptors")
	flag.DurationVar(&cfg.PhaseTimeout, "phase-timeout", cfg.PhaseTimeout, "timeout per phase, 0 waits forever")
	flag.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "prepare attempts per value, 0 is unlimited")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	valuesFlag := flag.String("values", "1,2,3", "comma-separated values to propose")
	wait := flag.Duration("wait", 10*time.Second, "how long to wait for each decision")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return err
	}
	values, err := parseValues(*valuesFlag)
	if err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cluster := node.NewCluster(cfg, logger)
	ctx, cancel := context.WithCancel(ctx)
	if err := cluster.Start(ctx); err != nil {
		cancel()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(cluster.Wait)
	g.Go(func() error {
		defer cancel()
		for i, v := range values {
			if err := cluster.Submit(gctx, v); err != nil {
				return err
			}
			waitCtx, done := context.WithTimeout(gctx, *wait)
			decisions, err := cluster.Learner().WaitN(waitCtx, i+1)
			done()
			if err != nil {
				return fmt.Errorf("value %d: %w", v, err)
			}
			d := decisions[i]
			if !d.Chosen() {
				fmt.Printf("value %d: no consensus: %v\n", v, d.Err)
				continue
			}
			fmt.Printf("value %d: chose %d under ballot %s (%d votes, %d attempts)\n",
				v, d.Proposal.Value, d.Proposal.ID, d.Votes, d.Attempts)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func parseValues(s string) ([]uint64, error) {
	var out []uint64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", f, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, errors.New("no values to propose")
	}
	return out, nil
}
