package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vellum-web/vellum"
	"github.com/vellum-web/vellum/internal/config"
	"github.com/vellum-web/vellum/internal/dev"
)

func devCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with hot reload.

Pages render on demand through the same routing logic the build
uses, so what you see in the browser is what the build emits.
Template changes refresh routes and reload connected browsers.

Examples:
  vellum dev
  vellum dev --port=3000
  vellum dev --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(port, host)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from vellum.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from vellum.json)")

	return cmd
}

func runDev(port int, host string) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Dev.Port = port
	}
	if host != "" {
		cfg.Dev.Host = host
	}

	engine, err := vellum.New(vellum.Options{Config: cfg, DevMode: true})
	if err != nil {
		return err
	}

	printBanner()
	fmt.Println("  dev")
	fmt.Println()

	server := dev.NewServer(engine, dev.ServerOptions{
		OnReload: func(clients int) {
			success("Reloaded %d browsers", clients)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\n  Shutting down...")
		cancel()
	}()

	return server.Start(ctx)
}
