package a2a

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/a2aproject/a2a-go/a2asrv"
)

// Register sets up A2A protocol routes on the given mux. The agent card is
// served publicly; the /a2a endpoint requires the API key when one is set.
func Register(mux *http.ServeMux, proc MessageProcessor, baseURL, version, apiKey string) {
	card := NewAgentCard(baseURL, version)

	executor := NewExecutor(proc)
	handler := a2asrv.NewHandler(executor)
	jsonrpcHandler := a2asrv.NewJSONRPCHandler(handler)

	mux.Handle(a2asrv.WellKnownAgentCardPath, a2asrv.NewStaticAgentCardHandler(card))
	mux.Handle("/a2a", apiKeyMiddleware(jsonrpcHandler, apiKey))

	slog.Info("a2a protocol enabled",
		slog.String("card_url", baseURL+a2asrv.WellKnownAgentCardPath),
		slog.String("endpoint", baseURL+"/a2a"),
		slog.Int("skills", len(card.Skills)),
		slog.Bool("auth", apiKey != ""))
}

// apiKeyMiddleware guards the endpoint with a shared key carried in the
// x-api-key header, or x-sn-apikey for ServiceNow callers. An empty configured
// key leaves the endpoint open.
func apiKeyMiddleware(next http.Handler, apiKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		for _, header := range []string{"x-api-key", "x-sn-apikey"} {
			if got := r.Header.Get(header); got != "" {
				if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}
