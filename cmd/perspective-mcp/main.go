package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ironsheep/perspective-mcp/internal/config"
	"github.com/ironsheep/perspective-mcp/internal/httpapi"
	"github.com/ironsheep/perspective-mcp/internal/metrics"
	"github.com/ironsheep/perspective-mcp/internal/server"
	"github.com/ironsheep/perspective-mcp/internal/storage"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("perspective-mcp - MCP server for document perspective correction")
	fmt.Println()
	fmt.Println("Usage: perspective-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v      Print version information")
	fmt.Println("  --help, -h         Print this help message")
	fmt.Println("  --http ADDR        Also serve the HTTP API on ADDR (e.g. :8080)")
	fmt.Println("  --env FILE         Load settings from FILE instead of .env")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  IMAGE_MCP_LOG_LEVEL=debug              Enable debug logging")
	fmt.Println("  PERSPECTIVE_OUTPUT_DIR=./corrected     Directory for output_path and save=true")
	fmt.Println("  PERSPECTIVE_DETECTOR=contour           contour, remote or none")
	fmt.Println("  PERSPECTIVE_DETECTOR_SOCKET=PATH       Unix socket of the remote detector")
	fmt.Println("  PERSPECTIVE_DETECTOR_TIMEOUT_MS=2000    Remote detector deadline")
	fmt.Println("  PERSPECTIVE_HTTP_ADDR=:8080            Enable the HTTP API")
	fmt.Println("  PERSPECTIVE_POLICY=best_by_area        strict or best_by_area")
	fmt.Println("  PERSPECTIVE_FALLBACK=true              Synthesize a quad when nothing is detected")
	fmt.Println("  PERSPECTIVE_MAX_OBSERVATIONS=8         Candidates requested from the detector")
	fmt.Println("  PERSPECTIVE_MIN_CONFIDENCE=0.5         Minimum detector confidence")
	fmt.Println("  PERSPECTIVE_MIN_ASPECT=0.3             Minimum short/long side ratio")
	fmt.Println("  PERSPECTIVE_MAX_ASPECT=1.0             Maximum short/long side ratio")
	fmt.Println("  PERSPECTIVE_MIN_SIZE=0.2               Minimum short side fraction")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func main() {
	var envFiles []string
	httpAddr := ""

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v", "version":
			fmt.Printf("perspective-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		case "--http", "--env":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires a value\n", args[i])
				os.Exit(2)
			}
			if args[i] == "--http" {
				httpAddr = args[i+1]
			} else {
				envFiles = append(envFiles, args[i+1])
			}
			i++
		default:
			fmt.Fprintf(os.Stderr, "unknown option: %s\n", args[i])
			os.Exit(2)
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(envFiles...)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}

	if cfg.Debug() {
		log.Printf("Perspective MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("Detector=%s policy=%s fallback=%t output=%s",
			cfg.Detector, cfg.Correction.SelectionPolicy, cfg.Correction.FallbackEnabled, cfg.OutputDir)
	}

	recorder := metrics.NewRecorder()
	srvOpts := []server.Option{
		server.WithDefaults(cfg.Correction),
		server.WithObserver(recorder),
	}
	apiOpts := []httpapi.Option{
		httpapi.WithMetrics(recorder.Handler()),
	}

	store, err := storage.NewFilesystemStore(cfg.OutputDir)
	if err != nil {
		log.Printf("Saving disabled: %v", err)
	} else {
		srvOpts = append(srvOpts, server.WithStore(store))
		apiOpts = append(apiOpts, httpapi.WithStore(store))
	}

	srv := server.New(cfg.NewDetector(), srvOpts...)

	var api *httpapi.Server
	if cfg.HTTPAddr != "" {
		api = httpapi.New(srv.Corrector(), cfg.Correction, apiOpts...)
		go func() {
			if err := api.Listen(cfg.HTTPAddr); err != nil {
				log.Printf("HTTP API stopped: %v", err)
			}
		}()
	}

	runErr := srv.Run()

	if api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := api.Shutdown(ctx); err != nil {
			log.Printf("HTTP API shutdown: %v", err)
		}
		cancel()
	}

	if runErr != nil {
		log.Fatalf("Server error: %v", runErr)
	}
}
