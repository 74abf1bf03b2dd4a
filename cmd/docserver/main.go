package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/syawaryo/kawasetu-copy-sub000/internal/config"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/docgen"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/excel"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/handle"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/logging"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/ocr"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/renderer"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/server"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
)

const budgetSheetTemplate = "実行予算書.xlsx"

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// A missing .env file is not an error; real env vars still apply.
	_ = godotenv.Load()

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	store := handle.NewStore(logger)
	generator := docgen.NewGenerator(renderer.NewPDFCPUBackend(), store, cfg.TemplateDir, cfg.FontFile, logger)
	exporter := excel.NewExporter(filepath.Join(cfg.TemplateDir, budgetSheetTemplate))

	var ocrClient *ocr.Client
	if cfg.OCRConfigured() {
		ocrClient = ocr.NewClient(cfg.OCREndpoint, cfg.OCRKey, cfg.OCRModelID, logger)
	} else {
		logger.Info("document-understanding service not configured, analyze route disabled")
	}

	srv := server.New(cfg, generator, store, ocrClient, exporter, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		if err := <-serverErrCh; err != nil {
			logger.Error("server shutdown with error", zap.Error(err))
			os.Exit(1)
		}
	case err := <-serverErrCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

func printVersion() {
	fmt.Printf("Kawasetu Document Server\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
