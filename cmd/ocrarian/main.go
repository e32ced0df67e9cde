package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Lllllllleong/documentocr/internal/auth"
	"github.com/Lllllllleong/documentocr/internal/config"
	"github.com/Lllllllleong/documentocr/internal/gcp"
	"github.com/Lllllllleong/documentocr/internal/services"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

func main() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-v] <file.pdf|file.png|file.jpg|gs://bucket/object>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose || strings.EqualFold(config.GetEnv("OCRARIAN_LOG_LEVEL", ""), "debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger.With("runId", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := run(ctx, flag.Arg(0))
	if err != nil {
		slog.Error("Conversion failed.", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
	fmt.Println(out)
}

func run(ctx context.Context, input string) (string, error) {
	dirs, err := config.ResolveDirs()
	if err != nil {
		return "", err
	}
	settings, err := config.Load(dirs)
	if err != nil {
		return "", err
	}

	manager, err := auth.NewManagerFromSettings(settings, os.Stderr)
	if err != nil {
		return "", err
	}

	// Credentials are only acquired once the input has been accepted.
	connect := func(ctx context.Context) (services.OCRService, error) {
		client, err := manager.AuthorizedClient(ctx)
		if err != nil {
			return nil, err
		}
		ocr, err := gcp.NewDriveOCR(ctx, gcp.DriveOptions{
			ChunkSize:   settings.UploadChunkSize,
			OCRLanguage: settings.OCRLanguage,
			Retry:       gcp.DefaultRetryPolicy,
		}, option.WithHTTPClient(client))
		if err != nil {
			return nil, err
		}
		return ocr, nil
	}

	var fetcher services.InputFetcher
	if strings.HasPrefix(input, "gs://") {
		storageFetcher, err := gcp.NewStorageFetcher(ctx)
		if err != nil {
			return "", err
		}
		defer storageFetcher.Close()
		fetcher = storageFetcher
	}

	pipeline, err := services.NewPipeline(services.PipelineConfig{
		ExportFormat:    settings.ExportFormat,
		MaxPagesPerPart: settings.MaxPagesPerPart,
		OCRTimeout:      settings.OCRTimeout,
		ScratchDir:      dirs.ScratchDir(),
		DocsDir:         dirs.DocsDir,
	}, connect, fetcher)
	if err != nil {
		return "", err
	}
	return pipeline.Run(ctx, input)
}
