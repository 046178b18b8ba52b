package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/memoir/internal/adapters/driven/config/file"
	"github.com/custodia-labs/memoir/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/memoir/internal/logger"
)

var (
	serveAddr     string
	serveInMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the JSON HTTP API.

Callers identify themselves with the X-Profile-Id header. Prompt templates in
<home>/prompts are reloaded when they change while the server runs. When an
embedding provider is configured, answers missing an embedding are backfilled
every reindex.interval.

Examples:
  memoir serve
  memoir serve --addr 0.0.0.0:9000
  memoir serve --memory   # throwaway in-memory store`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&serveInMemory, "memory", false, "use an in-memory store instead of SQLite")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if profileService == nil || answerService == nil || chatService == nil || reindexService == nil {
		return errors.New("services not configured")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.From(ctx)

	cfg := httpapi.Config{Addr: serveAddr}
	if current != nil {
		server := current.settings.Server
		if cfg.Addr == "" {
			cfg.Addr = server.Addr
		}
		cfg.RequestTimeout = server.RequestTimeout
		cfg.CORSOrigin = server.CORSOrigin
		cfg.Status = current.status

		if err := os.MkdirAll(current.promptDir, 0700); err != nil {
			return err
		}
		watcher, err := file.NewPromptWatcher(current.promptDir, current.prompts)
		if err != nil {
			log.Warn("prompt reload disabled", "error", err)
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
		}

		if current.status.Embedding {
			scheduler := current.scheduler
			schedCtx, cancelSched := context.WithCancel(ctx)
			schedDone := make(chan struct{})
			go func() {
				defer close(schedDone)
				if err := scheduler.Start(schedCtx); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn("reindex scheduler stopped", "error", err)
				}
			}()
			defer func() {
				cancelSched()
				<-schedDone
			}()
		}
	}

	server, err := httpapi.NewServer(httpapi.Ports{
		Profile: profileService,
		Answer:  answerService,
		Chat:    chatService,
		Reindex: reindexService,
	}, cfg)
	if err != nil {
		return err
	}

	cmd.Printf("memoir API listening on http://%s\n", server.Addr())
	if serveInMemory {
		cmd.Println("Using in-memory store: data is discarded on exit.")
	}
	return server.Run(ctx)
}
