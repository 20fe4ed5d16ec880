package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gamesup/gamesup"
)

func runServe(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config file required for serve command. Use --config=config.toml or provide as argument")
	}

	cfg, err := gamesup.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	sup, err := gamesup.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("error building supervisor: %w", err)
	}

	if err := gamesup.RegisterMetricsDefault(); err != nil {
		fmt.Printf("Warning: failed to register metrics: %v\n", err)
	}
	if cfg.Server.MetricsAddr != "" {
		go func() {
			if err := gamesup.ServeMetrics(cfg.Server.MetricsAddr); err != nil {
				fmt.Printf("Metrics server error: %v\n", err)
			}
		}()
	}

	listen := cfg.Server.Listen
	if listen == "" {
		listen = ":8080"
	}
	server, err := gamesup.NewHTTPServer(listen, cfg.Server.BasePath, sup)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	fmt.Printf("Starting gamesup server on %s%s\n", listen, cfg.Server.BasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	sup.Shutdown()
	return server.Close()
}
