// Copyright © 2026 Termrelay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/termrelay-server/main.go
// Summary: Starts the termrelay session server.
// Usage: Executed by operators or the attach client to host sessions.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"termrelay/config"
	"termrelay/history"
	"termrelay/server"
)

func main() {
	configPath := flag.String("config", "", "Config file path (default: user config dir)")
	socketPath := flag.String("socket", "", "Unix socket path (overrides config)")
	shell := flag.String("shell", "", "Shell for new sessions (overrides config)")
	console := flag.Bool("console", false, "Plain output mode, no escape sequences")
	verboseLogs := flag.Bool("verbose-logs", false, "Enable verbose server logging")
	cpuProfile := flag.String("pprof-cpu", "", "Write CPU profile to file")
	flag.Parse()

	if *configPath == "" {
		path, err := config.Path()
		if err == nil {
			*configPath = path
		}
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}
	if *shell != "" {
		cfg.Shell = *shell
	}
	if *console {
		cfg.Console = true
	}
	if *verboseLogs {
		cfg.Verbose = true
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create CPU profile: %v\n", err)
			os.Exit(1)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	opts := server.Options{
		Shell:   cfg.Shell,
		Console: cfg.Console,
	}
	if cfg.Verbose {
		opts.Observer = server.NewFlushLogger(log.Default())
	}

	var store *history.Store
	if cfg.HistoryPath != "" {
		store, err = history.NewStore(cfg.HistoryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open history store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		opts.History = store

		if cfg.HistoryRetentionDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -cfg.HistoryRetentionDays)
			if n, err := store.Prune(cutoff); err != nil {
				log.Printf("history prune failed: %v", err)
			} else if n > 0 {
				log.Printf("history: pruned %d old lines", n)
			}
		}
	}

	manager := server.NewManager(opts)
	srv := server.NewServer(cfg.SocketPath, manager)
	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		os.Exit(1)
	}
	log.Printf("termrelay server listening on %s", cfg.SocketPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	manager.CloseAll()
}
