package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/receipt-uploader/internal/render"
	"github.com/zombor/receipt-uploader/internal/upload"
	"github.com/zombor/receipt-uploader/internal/web"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-uploader")
	var (
		endpoint    = fs.StringLong("endpoint", upload.DefaultEndpoint, "Receipt parsing service upload URL")
		timeout     = fs.DurationLong("timeout", upload.DefaultTimeout, "Maximum time to wait for the parsing service")
		port        = fs.IntLong("port", 8080, "HTTP server port")
		filePath    = fs.StringLong("file", "", "Upload this image once, print the receipt and exit")
		debug       = fs.BoolLong("debug", "Enable debug logging")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_UPLOADER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	client, err := upload.NewClient(upload.Config{
		Endpoint: *endpoint,
		Timeout:  *timeout,
	})
	if err != nil {
		slog.Error("Failed to initialize upload client", "error", err)
		os.Exit(1)
	}
	controller := upload.NewController(client)

	if *filePath != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		code := uploadOnce(ctx, controller, *filePath, os.Stdout, os.Stderr)
		stop()
		os.Exit(code)
	}

	server := web.NewServer(controller)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "endpoint", client.Endpoint())

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Failed to shut down server", "error", err)
	}
}

// uploadOnce submits a single file and prints the outcome, returning the exit code
func uploadOnce(ctx context.Context, controller *upload.Controller, path string, stdout, stderr io.Writer) int {
	file, err := upload.OpenFile(path)
	if err != nil {
		slog.Error("Failed to open file", "error", err, "path", path)
		render.WriteError(stderr, err.Error())
		return 1
	}

	// A failed upload is recorded in the state, rendered below
	if err := controller.Submit(ctx, file); errors.Is(err, upload.ErrUploadInProgress) {
		slog.Error("Failed to submit file", "error", err)
		return 1
	}

	state := controller.State()
	if state.Phase != upload.PhaseSuccess {
		render.WriteError(stderr, state.Err)
		return 1
	}

	if err := render.WriteText(stdout, render.Build(state.Receipt, state.Discrepancies)); err != nil {
		slog.Error("Failed to write receipt", "error", err)
		return 1
	}
	return 0
}
