// Command pagesim replays a skewed page-reference trace against a replacement
// policy and reports the hit ratio and the disk traffic it caused.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/tuannm99/novapage/internal"
	"github.com/tuannm99/novapage/internal/common"
	"github.com/tuannm99/novapage/internal/disk"
	"github.com/tuannm99/novapage/internal/logger"
	"github.com/tuannm99/novapage/internal/replacer"
)

func main() {
	fs := pflag.NewFlagSet("pagesim", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", "", "path to a yaml config file")
	internal.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, fs, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "pagesim: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, fs *pflag.FlagSet, out io.Writer) (err error) {
	cfg, err := internal.LoadConfig(configPath, fs)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	common.EnableDeadlockDetection(cfg.Debug.DeadlockDetection)

	// Validate has already rejected unknown names.
	policy, _ := replacer.ParsePolicy(cfg.Replacer.Policy)
	mode, _ := disk.ParseMode(cfg.Disk.Mode)

	store, err := disk.OpenStore(mode, cfg.Disk.Workdir, cfg.Disk.Base,
		disk.WithLogger(log),
		disk.WithPagesPerSegment(cfg.Disk.PagesPerSegment),
	)
	if err != nil {
		return errors.Wrap(err, "open page store")
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close page store")
		}
	}()

	r, err := replacer.New(policy, cfg.Replacer.Capacity, cfg.Replacer.K)
	if err != nil {
		return err
	}

	sched := disk.NewScheduler(store, disk.WithLogger(log))
	sim := NewSimulator(r, sched, cfg.Replacer.Capacity, log.WithField("app", cfg.AppName))

	log.WithFields(logrus.Fields{
		"policy":   policy,
		"frames":   cfg.Replacer.Capacity,
		"k":        cfg.Replacer.K,
		"store":    mode,
		"pages":    cfg.Sim.Pages,
		"accesses": cfg.Sim.Accesses,
		"workers":  cfg.Sim.Workers,
	}).Info("simulation started")

	runErr := sim.Run(ctx, Workload{
		Pages:      cfg.Sim.Pages,
		Accesses:   cfg.Sim.Accesses,
		Workers:    cfg.Sim.Workers,
		Skew:       cfg.Sim.Skew,
		WriteRatio: cfg.Sim.WriteRatio,
		Seed:       cfg.Sim.Seed,
	})
	flushErr := sim.FlushAll()
	sched.Shutdown()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return errors.Wrap(runErr, "run workload")
	}
	if flushErr != nil {
		return errors.Wrap(flushErr, "flush")
	}

	rep := sim.Report()
	log.WithField("hit_ratio", rep.HitRatio()).Info("simulation finished")
	return printReport(out, policy, cfg.Replacer.K, rep, store)
}

func printReport(out io.Writer, policy replacer.Policy, k int, rep Report, store disk.PageStore) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	name := string(policy)
	if policy == replacer.PolicyLRUK {
		name = fmt.Sprintf("lru-%d", k)
	}
	fmt.Fprintf(tw, "policy\t%s\n", name)
	fmt.Fprintf(tw, "accesses\t%d\n", rep.Accesses)
	fmt.Fprintf(tw, "writes\t%d\n", rep.Writes)
	fmt.Fprintf(tw, "hits\t%d\n", rep.Hits)
	fmt.Fprintf(tw, "misses\t%d\n", rep.Misses)
	fmt.Fprintf(tw, "hit ratio\t%.4f\n", rep.HitRatio())
	fmt.Fprintf(tw, "evictions\t%d\n", rep.Evictions)
	fmt.Fprintf(tw, "write backs\t%d\n", rep.WriteBacks)
	fmt.Fprintf(tw, "scheduled\t%d (%d failed)\n", rep.Scheduler.Scheduled, rep.Scheduler.Failed)
	fmt.Fprintf(tw, "disk reads\t%d\n", store.NumReads())
	fmt.Fprintf(tw, "disk writes\t%d\n", store.NumWrites())
	return tw.Flush()
}
