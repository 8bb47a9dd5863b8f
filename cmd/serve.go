package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/interview-coach/internal/coach"
	"github.com/spigell/interview-coach/internal/logger"
	"github.com/spigell/interview-coach/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve interview sessions over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8080)")

	viper.BindPFlag("serve.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil || config.Interview == nil || config.Serve == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the interview-coach server", zap.String("version", version))

	gen, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating ai backend", zap.Error(err))
	}

	controller, c, err := newController(config.Interview, gen, logger)
	if err != nil {
		logger.Fatal("preparing interview", zap.Error(err))
	}

	fallback := config.Interview.Questions
	if len(fallback) == 0 {
		fallback = coach.DemoQuestions
	}

	deps := server.Deps{
		Controller:        controller,
		Logger:            logger.Named("server"),
		FallbackQuestions: fallback,
		DefaultRole:       config.Interview.Role,
	}
	if gen != nil {
		deps.Questions = c
	}

	store, err := openArchive(config)
	if err != nil {
		logger.Fatal("opening archive", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
		deps.Archive = store
	}

	if err := server.New(deps).Run(ctx, config.Serve.Listen); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}
}
