package metrics

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/logger"
)

// StartServer serves g on /metrics at port in the background. The returned
// function shuts the server down.
func StartServer(port int, g prometheus.Gatherer) (shutdown func(context.Context) error) {
	log := logger.WithComponent("metrics-server")
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      newServerMux(g),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}

func newServerMux(g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler(g))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><h1>Glossary Engine Metrics</h1><p><a href="/metrics">/metrics</a></p><ul>`)
		for _, name := range glossaryFamilies(g) {
			fmt.Fprintf(w, "<li>%s</li>", html.EscapeString(name))
		}
		fmt.Fprint(w, `</ul></body></html>`)
	})
	return mux
}

// glossaryFamilies lists the engine's own metric families, skipping the Go
// runtime and process collectors.
func glossaryFamilies(g prometheus.Gatherer) []string {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	families, err := g.Gather()
	if err != nil {
		logger.WithComponent("metrics-server").Warn("gathering metric families", "error", err)
	}
	var names []string
	for _, mf := range families {
		name := mf.GetName()
		if strings.HasPrefix(name, "go_") || strings.HasPrefix(name, "process_") || strings.HasPrefix(name, "promhttp_") {
			continue
		}
		names = append(names, name)
	}
	return names
}
