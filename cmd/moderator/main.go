package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/digimosa/content-moderation/internal/ai"
	"github.com/digimosa/content-moderation/internal/allowlist"
	"github.com/digimosa/content-moderation/internal/classifier"
	"github.com/digimosa/content-moderation/internal/config"
	"github.com/digimosa/content-moderation/internal/extractor"
	"github.com/digimosa/content-moderation/internal/imaging"
	"github.com/digimosa/content-moderation/internal/models"
	"github.com/digimosa/content-moderation/internal/moderation"
	"github.com/digimosa/content-moderation/internal/ocr"
	"github.com/digimosa/content-moderation/internal/redaction"
	"github.com/digimosa/content-moderation/internal/scanner"
	"github.com/digimosa/content-moderation/internal/server"
	"github.com/digimosa/content-moderation/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	text := flag.String("text", "", "Moderate this text and print the verdict")
	imagePath := flag.String("image", "", "Moderate this image file and print the verdict")
	redactOut := flag.String("redact-out", "", "With -image, write a redacted copy here")
	contentID := flag.String("content-id", "", "Content id for -text/-image (default: random)")
	rootPath := flag.String("path", "", "Moderate every submission file below this directory")
	workers := flag.Int("workers", 0, "Number of concurrent workers (default: from config)")
	serve := flag.Bool("serve", false, "Start the review API")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *verbose {
		cfg.Verbose = true
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *rootPath != "" {
		cfg.RootPath = *rootPath
	}

	log, err := newLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, options{
		text:      *text,
		imagePath: *imagePath,
		redactOut: *redactOut,
		contentID: *contentID,
		serve:     *serve,
	}); err != nil {
		log.Error("moderator failed", zap.Error(err))
		os.Exit(1)
	}
}

type options struct {
	text      string
	imagePath string
	redactOut string
	contentID string
	serve     bool
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// app holds the wired pipeline.
type app struct {
	engine   *moderation.Engine
	redactor *redaction.Redactor
	store    *storage.Store
	allow    *allowlist.Allowlist
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	allow, err := allowlist.Load(cfg.AllowlistPath)
	if err != nil {
		return nil, err
	}

	var recognizer ocr.Recognizer = ocr.Disabled{}
	if cfg.OCR.Enabled {
		client := ai.NewClient(log, cfg.OCR.OllamaEndpoint)
		if err := client.Ping(ctx); err != nil {
			log.Warn("OCR model not reachable, image text will not be checked until it is", zap.Error(err))
		}
		recognizer = ai.NewVisionOCR(client)
	}

	var cls classifier.TextClassifier = classifier.NewKeywordClassifier()
	if cfg.Classifier.UseLLM {
		cls = ai.NewLLMClassifier(log, ai.NewClient(log, cfg.Classifier.OllamaEndpoint), cls)
	}

	pii := extractor.NewPIIDetector(log, recognizer, allow)
	analyzer := imaging.NewAnalyzer(log, recognizer, pii, cls, imaging.Options{
		OCRTimeout:           cfg.Moderation.OCRTimeout,
		FailClosedOnOCRError: cfg.Moderation.FailClosedOnOCRError,
	})

	redactor, err := redaction.New(log)
	if err != nil {
		return nil, err
	}

	a := &app{
		engine:   moderation.NewEngine(log, pii, cls, analyzer),
		redactor: redactor,
		allow:    allow,
	}
	if cfg.Storage.Path != "" {
		if a.store, err = storage.Open(cfg.Storage.Path); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, opts options) error {
	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	if a.store != nil {
		defer a.store.Close()
	}

	acted := false
	if opts.text != "" {
		acted = true
		ref := models.ContentRef{ContentID: idOrRandom(opts.contentID), ContentType: models.ContentPost}
		res, err := a.engine.ModerateText(ctx, ref, opts.text)
		if err != nil {
			return err
		}
		if err := a.save(ctx, res); err != nil {
			return err
		}
		if err := printJSON(res); err != nil {
			return err
		}
	}

	if opts.imagePath != "" {
		acted = true
		if err := a.moderateImageFile(ctx, opts); err != nil {
			return err
		}
	}

	if cfg.RootPath != "" {
		acted = true
		start := time.Now()
		s := scanner.NewScanner(ctx, cfg, log, a.engine, a.store)
		if err := s.Run(); err != nil {
			return err
		}
		log.Info("scan complete", zap.Duration("elapsed", time.Since(start)))
		if err := s.Report.SaveJSON(cfg.ReportPath); err != nil {
			return err
		}
		log.Info("report saved", zap.String("path", cfg.ReportPath))
	}

	if opts.serve {
		acted = true
		srv := server.NewServer(cfg.Server, log, a.engine, a.redactor, a.store, a.allow)
		return srv.Start(ctx)
	}

	if !acted {
		fmt.Println("No action specified.")
		fmt.Println("Use -text or -image to moderate one submission, -path to scan a directory,")
		fmt.Println("or -serve to start the review API.")
		flag.PrintDefaults()
	}
	return nil
}

func (a *app) moderateImageFile(ctx context.Context, opts options) error {
	data, err := os.ReadFile(opts.imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	ref := models.ContentRef{ContentID: idOrRandom(opts.contentID), ContentType: models.ContentImage}
	res, err := a.engine.ModerateImage(ctx, ref, data)
	if err != nil {
		return err
	}
	if err := a.save(ctx, res); err != nil {
		return err
	}

	if opts.redactOut != "" {
		out, err := a.redactor.Redact(data, res.DetectedPII)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.redactOut, out, 0o644); err != nil {
			return fmt.Errorf("write redacted image: %w", err)
		}
	}
	return printJSON(res)
}

func (a *app) save(ctx context.Context, res *models.ModerationResult) error {
	if a.store == nil {
		return nil
	}
	_, err := a.store.SaveResult(ctx, res, storage.SaveOptions{})
	return err
}

func idOrRandom(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
