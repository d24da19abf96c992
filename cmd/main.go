package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"raftlog/internal/http"
	"raftlog/pkg/appender"
	"raftlog/pkg/cluster"
	"raftlog/pkg/journal"
	"raftlog/pkg/metrics"
	"raftlog/pkg/role"
)

// noopTransition is used when the node runs without a cluster registry.
type noopTransition struct{}

func (noopTransition) TransitionTo(target role.Target) {
	slog.Info("role transition requested", "target", target.String())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfgPath := os.Getenv("RAFTLOG_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := initConfig(cfgPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	initLogger(&cfg)

	// --- journal writer ---
	var (
		writer      journal.Writer
		fileJournal *journal.File
	)
	if cfg.Journal.InMemory {
		writer = journal.NewInMemory(cfg.Journal.MaxEntryBytes)
	} else {
		fileJournal, err = journal.NewFile(journal.FileConfig{
			Dir:           cfg.Journal.Dir,
			MaxEntryBytes: cfg.Journal.MaxEntryBytes,
			SyncOnAppend:  cfg.Journal.SyncOnAppend,
		})
		if err != nil {
			slog.Error("failed to open journal", "error", err)
			os.Exit(1)
		}
		writer = fileJournal
	}

	// --- metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	appendMetrics := metrics.NewAppend(registry)

	// --- ZooKeeper membership (optional) ---
	var transition role.Transitioner = noopTransition{}
	if len(cfg.Cluster.Servers) > 0 {
		membership, err := cluster.NewZKMembership(cfg.Cluster.Servers, cfg.Cluster.RootPath, cfg.Cluster.NodeAddr)
		if err != nil {
			slog.Error("failed to connect to zookeeper", "error", err)
			os.Exit(1)
		}
		defer func() { _ = membership.Close() }()

		if err := membership.RegisterSelf(); err != nil {
			slog.Error("failed to register node in zookeeper", "error", err)
			os.Exit(1)
		}
		if err := membership.AnnounceRole("leader"); err != nil {
			slog.Warn("failed to announce leader state", "error", err)
		}
		membership.WatchNodes(ctx, func(nodes []string) {
			slog.Info("cluster membership changed", "nodes", nodes)
		})

		transition = cluster.NewAnnouncer(membership)
	}

	// --- leader role ---
	leader := role.NewLeader(writer, transition, role.Options{
		Append: appender.Options{
			MaxAttempts: cfg.Append.MaxAttempts,
			RetryDelay:  time.Duration(cfg.Append.RetryDelayMs) * time.Millisecond,
			Metrics:     appendMetrics,
		},
	})

	// --- HTTP server ---
	server := http.NewServer(leader, registry, fmt.Sprintf("%d", cfg.Server.Port))
	if err := server.Start(); err != nil {
		slog.Error("failed to start HTTP server", "error", err)
		os.Exit(1)
	}

	slog.Info("raftlog node running", "port", cfg.Server.Port, "journal_dir", cfg.Journal.Dir)

	<-ctx.Done()

	leader.Stop()
	select {
	case <-leader.Done():
	case <-time.After(10 * time.Second):
		slog.Warn("leader role did not close in time")
	}

	if err := server.Stop(); err != nil {
		slog.Error("error stopping server", "error", err)
	}
	if fileJournal != nil {
		if err := fileJournal.Close(); err != nil {
			slog.Error("error closing journal", "error", err)
		}
	}

	slog.Info("raftlog stopped")
}
