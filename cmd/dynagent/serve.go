package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/okhotin/dynagent/internal/a2a"
	"github.com/okhotin/dynagent/internal/agent"
	"github.com/okhotin/dynagent/internal/config"
	"github.com/okhotin/dynagent/internal/dynatrace"
	"github.com/okhotin/dynagent/internal/mcptools"
	"github.com/okhotin/dynagent/internal/metrics"
	"github.com/okhotin/dynagent/internal/provider"
)

// runServe starts the agent: A2A, MCP, health, and metrics over HTTP,
// or an MCP server on stdio with --stdio.
func runServe() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	stdio := hasFlag("--stdio")

	logWriter := os.Stdout
	if stdio {
		logWriter = os.Stderr
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	dyn := dynatrace.NewClient(cfg.DynatraceURL, cfg.DynatraceToken, cfg.DynatraceTimeout)
	llm := provider.NewGemini(cfg.GeminiAPIURL, cfg.GeminiAPIKey, cfg.Models(), cfg.LLMTimeout)
	ag := agent.New(dyn, llm)

	mcpServer := buildMCPServer(ag)

	if stdio {
		slog.Info("running in stdio mode")
		if err := mcpServer.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
			slog.Error("stdio server failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	port := cfg.Port
	if p := getFlagValue("--port"); p != "" {
		port = p
	}
	baseURL := cfg.HostURL
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	mux := http.NewServeMux()
	a2a.Register(mux, ag, baseURL, version, cfg.A2AAPIKey)

	mcpHandler := buildMCPHTTPHandler(mcpServer)
	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/mcp/", mcpHandler)

	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.Handle("GET /metrics", metrics.Handler())

	sigCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	startHTTPServer(sigCtx, &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	})
}

func buildMCPServer(ag *agent.Agent) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "dynagent",
		Version: version,
	}, nil)
	mcptools.RegisterAll(server, ag)
	return server
}

func buildMCPHTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"healthy","service":"dynagent","version":"%s"}`, version)
}

// startHTTPServer runs srv until ctx is done, then drains connections.
func startHTTPServer(ctx context.Context, srv *http.Server) {
	go func() {
		slog.Info("listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	slog.Info("stopped")
}
