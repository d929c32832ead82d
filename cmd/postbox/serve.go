package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/blackcoderx/postbox/pkg/api"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the collection runner over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Server
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			services := api.Services{
				Collections:  a.collections,
				Environments: a.environments,
				Runner:       a.runner,
			}
			if a.history != nil {
				services.History = a.history
			}
			if a.cfg.HTTP.TimeoutSeconds > 0 {
				// Leave room for the outbound exchange inside the handler timeout.
				services.RequestTimeout = time.Duration(a.cfg.HTTP.TimeoutSeconds)*time.Second + 5*time.Second
			}
			server := api.NewServer(services, cfg)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-cmd.Context().Done():
			}

			fmt.Println("\nShutting down server...")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Stop(ctx); err != nil {
				log.Printf("Error shutting down HTTP server: %v", err)
			}
			fmt.Println("Server shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
