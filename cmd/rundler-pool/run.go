// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	avatrace "github.com/ava-labs/avalanchego/trace"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rayyan224/rundler/chainwatch"
	"github.com/rayyan224/rundler/entrypoint"
	"github.com/rayyan224/rundler/poolsrv"
	"github.com/rayyan224/rundler/trace"
	"github.com/rayyan224/rundler/uop"
	"github.com/rayyan224/rundler/uopool"
)

func newRunCmd() *cobra.Command {
	var rpcWSURL string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pool core until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			logLevel, _ := cmd.Flags().GetString("log-level")

			log, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			return runPool(cmd.Context(), log, cfg, rpcWSURL)
		},
	}

	cmd.Flags().StringVar(&rpcWSURL, "execution-ws", "", "websocket RPC endpoint of the execution client to watch for new heads")
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zap.AtomicLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

func runPool(ctx context.Context, log *zap.Logger, cfg appConfig, rpcWSURL string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, closeTracer, err := newTracer(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeTracer(context.Background())

	reg := prometheus.NewRegistry()
	go serveMetrics(log, cfg.MetricsListen, reg)

	chainSub, closeChain, err := newChainSubscriber(ctx, rpcWSURL)
	if err != nil {
		return err
	}
	defer closeChain()

	builder := poolsrv.New(cfg.Pool, chainSub, log).WithMetrics(reg).WithTracer(tracer)
	for addr, mpCfg := range cfg.EntryPoints {
		ep := entrypoint.ID(common.HexToAddress(addr))
		// EntryPoint 0.7 (V2) is the only packed UserOperation shape this
		// binary wires up a reference pool for; a deployment serving V1
		// EntryPoints alongside it constructs its own uopool.Pool per
		// address and calls WithMempool directly instead of using this CLI.
		builder = builder.WithMempool(ep, uopool.New(uop.V2, mpCfg))
	}

	runner, handle, err := builder.Build()
	if err != nil {
		return err
	}
	_ = handle // exposed to in-process RPC/builder callers constructed alongside this command in a full deployment

	log.Info("pool core starting", zap.Int("entry_points", len(cfg.EntryPoints)))
	return runner.Run(ctx)
}

func newTracer(ctx context.Context, cfg appConfig) (avatrace.Tracer, func(context.Context) error, error) {
	t, err := trace.New(cfg.Trace)
	if err != nil {
		return nil, nil, err
	}
	return t, func(ctx context.Context) error { return t.Close() }, nil
}

func serveMetrics(log *zap.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", zap.Error(err))
	}
}

func newChainSubscriber(ctx context.Context, wsURL string) (poolsrv.ChainSubscriber, func(), error) {
	if wsURL == "" {
		return blockingChainSubscriber{}, func() {}, nil
	}
	sub, err := chainwatch.Dial(ctx, wsURL)
	if err != nil {
		return nil, nil, err
	}
	return sub, sub.Close, nil
}

// blockingChainSubscriber is used when no execution client endpoint is
// configured: the pool core still runs, serving add_op/get_ops/etc.,
// it just never observes a confirmed head.
type blockingChainSubscriber struct{}

func (blockingChainSubscriber) Next(ctx context.Context) (*poolsrv.ChainUpdate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
