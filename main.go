package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spidr/estimate-form/pkg/api"
	"github.com/spidr/estimate-form/pkg/clients/logsink"
	"github.com/spidr/estimate-form/pkg/config"
	"github.com/spidr/estimate-form/pkg/models"
	"github.com/spidr/estimate-form/pkg/particles"
	"github.com/spidr/estimate-form/pkg/services"
	"github.com/spidr/estimate-form/pkg/tui"
	"github.com/spidr/estimate-form/pkg/utils"
)

const shutdownTimeout = 5 * time.Second

var (
	cfg     *config.Config
	logger  *zap.Logger
	logFile string
)

var rootCmd = &cobra.Command{
	Use:           "estimate-form",
	Short:         "Air fryer estimate form server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envErr := godotenv.Load()

		// Initialize configuration
		cfg = config.LoadConfig()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		// Keep log lines off the terminal the form is drawn on
		if cmd == tuiCmd && logFile == "" {
			logFile = "estimate-form.log"
		}

		var err error
		logger, err = newLogger(cfg, logFile)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if envErr != nil {
			logger.Debug("No .env file loaded", zap.Error(envErr))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the form over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Fill in the form from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		session := services.NewSession(logsink.NewClient(logger), services.SessionOptions{
			NoticeDuration: cfg.SubmitNoticeDuration,
			RequirePIN:     cfg.RequirePIN,
			Logger:         logger,
		})
		return tui.Run(cmd.Context(), session)
	},
}

var formatCmd = &cobra.Command{
	Use:   "format <field> <value>",
	Short: "Print a value the way the form would store it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, value := args[0], args[1]
		if !models.IsField(field) {
			return fmt.Errorf("%w: %q", services.ErrUnknownField, field)
		}
		if field == models.FieldEstimate {
			value = utils.FormatUSD(utils.ParseEstimate(value))
		} else {
			value = utils.Normalize(field, value)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), value)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.AddCommand(serveCmd, tuiCmd, formatCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config, path string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.GinMode == gin.DebugMode {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = level

	if path != "" {
		zcfg.OutputPaths = []string{path}
		zcfg.ErrorOutputPaths = []string{path}
	}
	return zcfg.Build()
}

func runServer(ctx context.Context) error {
	sink := logsink.NewClient(logger)

	// Initialize services
	store := services.NewSessionStore(func() *services.Session {
		return services.NewSession(sink, services.SessionOptions{
			NoticeDuration: cfg.SubmitNoticeDuration,
			RequirePIN:     cfg.RequirePIN,
			Logger:         logger,
		})
	}, cfg.SessionTTL, logger)
	defer store.Close()

	background := particles.NewEngine(cfg.ParticlesConfig)
	if _, err := background.Init(); err != nil {
		logger.Warn("Using default particles config", zap.Error(err))
	}

	gin.SetMode(cfg.GinMode)

	// Initialize handlers
	handlers := api.NewHandlers(store, background, logger)
	router, err := api.NewRouter(handlers, logger, cfg.CORSAllowedOrigins)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
