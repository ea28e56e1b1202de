package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/hbgo/capture/internal/scanning"
	"github.com/hbgo/capture/internal/transaction"
)

func main() {
	fs := ff.NewFlagSet("hb-capture")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "hb-capture.db", "Database file path")
		ocrLanguage = fs.StringLong("ocr-lang", "eng", "OCR language")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama vision model name (e.g. llava, qwen2-vl)")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("HB_CAPTURE"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	slog.Info("Initializing database...")
	db, err := transaction.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// The cloud tier is optional; without a key those requests fail with a
	// capability error instead.
	var cloud scanning.Engine
	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey != "" {
		slog.Info("Initializing Gemini engine...", "model", *geminiModel)
		gemini, err := scanning.NewGemini(context.Background(), apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		cloud = gemini
	} else {
		slog.Warn("No Gemini API key configured; cloud tier disabled")
	}

	slog.Info("Initializing local engines...", "ollama", *ollamaURL, "model", *ollamaModel)
	ollama := scanning.NewOllama(*ollamaURL, *ollamaModel)

	orchestrator := scanning.NewOrchestrator(
		scanning.NewSystemOCR(*ocrLanguage),
		scanning.NewLocalOCR(*ocrLanguage),
		ollama,
		cloud,
	)

	service := transaction.NewService(db, orchestrator)

	basicAuth := transaction.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := transaction.NewServer(service, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
