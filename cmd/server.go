package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amtly/amtly/internal/backlog"
	"github.com/amtly/amtly/internal/chat"
	"github.com/amtly/amtly/internal/db"
	"github.com/amtly/amtly/internal/server"
	"github.com/amtly/amtly/internal/validation"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP and WebSocket chat server",
	Long: `Starts the amtly server: the chat REST API, the form catalog API,
the /ws/chat WebSocket endpoint and the health and status endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}

		database, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		validator := validation.NewValidator(cfg.Chat.MaxMessageLength, cfg.Upload.MaxFileSize, cfg.Upload.AllowedExtensions)
		svc := chat.NewService(chat.NewStore(database), a.engine, validator, createExtractorFromConfig(cfg), chat.Options{
			HistoryLimit:  cfg.Chat.HistoryLimit,
			DocumentChars: cfg.Chat.DocumentContextChars,
			UploadDir:     cfg.Upload.Dir,
		}, logger)
		gaps := backlog.NewStore(database)
		svc.SetGapRecorder(gaps)

		srv := server.New(server.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
			Info: server.Info{
				Version:            Version,
				LLMProvider:        string(cfg.LLM.Provider),
				LLMModel:           cfg.LLM.Model,
				LLMConfigured:      a.llmConfigured,
				Collection:         cfg.Search.Collection,
				SupportedLanguages: cfg.Language.Supported,
			},
		}, database, a.vectorStore(), logger)

		chat.RegisterRoutes(srv.Router(), svc)
		backlog.RegisterRoutes(srv.Router(), gaps)

		go func() {
			<-ctx.Done()
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown", zap.Error(err))
			}
		}()

		logger.Info("amtly server starting",
			zap.String("version", Version),
			zap.String("addr", srv.Addr()),
			zap.String("database", cfg.Database.Driver),
			zap.String("llm", string(cfg.LLM.Provider)+"/"+cfg.LLM.Model),
			zap.Bool("document_search", a.store != nil && a.store.Count() > 0),
		)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
