package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	raffle "github.com/streamraffle/go-raffle"
	"github.com/streamraffle/go-raffle/common/loggers"
	"github.com/streamraffle/go-raffle/common/notifs"
	"github.com/streamraffle/go-raffle/models"
	"github.com/streamraffle/go-raffle/server"
	"github.com/streamraffle/go-raffle/services"
)

type cliArgs struct {
	EnvFile string `arg:"-e,--env-file" default:".env" help:"path to the env file to load"`
	Listen  string `arg:"-l,--listen" help:"listen address (overrides LISTEN_ADDRESS)"`
}

func main() {
	args := cliArgs{}
	arg.MustParse(&args)

	if err := godotenv.Load(args.EnvFile); err != nil {
		log.Printf("no env file loaded from %s: %v", args.EnvFile, err)
	}

	logger := loggers.NewLogger()
	defer logger.Sync()

	// The gateway cannot authenticate deliveries without the shared secret,
	// so refuse to start.
	secret := os.Getenv(raffle.Env_WebhookSecret)
	if len(secret) == 0 {
		logger.Fatalf("main: %s is not set", raffle.Env_WebhookSecret)
	}

	listenAddr := args.Listen
	if len(listenAddr) == 0 {
		listenAddr = os.Getenv(raffle.Env_ListenAddress)
	}
	if len(listenAddr) == 0 {
		listenAddr = raffle.DefaultListenAddress
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricService, err := services.NewMetricService(ctx, logger)
	if err != nil {
		logger.Fatalf("main: failed to create metric service: %v", err)
	}
	notifier, err := notifs.NewDiscordHandler(logger)
	if err != nil {
		logger.Fatalf("main: failed to create discord handler: %v", err)
	}

	sessions := services.NewSessionRegistry(logger)
	campaigns := services.NewCampaignRegistry(logger)
	hub := services.NewHub(logger, metricService)
	go hub.Run(ctx)

	verifier := services.NewSignatureVerifier([]byte(secret))
	dispatcher := services.NewDispatchService(sessions, campaigns, hub, notifier, metricService, logger)
	srv := server.NewServer(listenAddr, verifier, dispatcher, sessions, campaigns, hub, metricService, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("main: http server failed: %v", err)
		}
	}()
	logger.Infof("main: %s listening on %s", raffle.ServiceName, listenAddr)
	if err = notifier.SendInfo(
		models.AlertTitle,
		models.AlertDesc_Startup,
		fmt.Sprintf(models.AlertFmt_Startup, listenAddr),
	); err != nil {
		logger.Errorf("main: failed to send startup notification: %v", err)
	}

	<-ctx.Done()
	logger.Infoln("main: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), raffle.DefaultHttpWaitTime)
	defer cancel()
	// Viewers get the terminal event first, which unblocks their handlers so
	// the http server can drain.
	hub.Shutdown(shutdownCtx)
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("main: error during http shutdown: %v", err)
	}
	metricService.Shutdown(shutdownCtx)
}
