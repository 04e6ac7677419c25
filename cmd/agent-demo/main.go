// Command agent-demo is a reference agent embedding FabricRuntime: it
// subscribes to a subject, posts a broadcast on startup, and exposes a
// minimal status endpoint over plain net/http so an operator can check
// connectivity without a metrics scraper.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shane2512/AeXoWorK-sub001/internal/config"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/metrics"
	"github.com/shane2512/AeXoWorK-sub001/internal/registry"
	"github.com/shane2512/AeXoWorK-sub001/public/fabric"
)

func main() {
	configPath := ""
	if len(os.Args) >= 2 {
		configPath = os.Args[1]
	}

	runtime, err := fabric.New(fabric.Options{
		RolePrefix: config.RoleWorkerAgent,
		ConfigPath: configPath,
	})
	if err != nil {
		log.Fatalf("agent-demo: failed to initialize fabric runtime: %v", err)
	}

	runtime.Subscribe("aexowork.jobs", func(ctx context.Context, e *envelope.Envelope, meta registry.Metadata) {
		log.Printf("agent-demo: received job post from %s (verified=%v)", meta.FromAccountID, meta.Verified)
	})
	runtime.Subscribe(registry.Wildcard, func(ctx context.Context, e *envelope.Envelope, meta registry.Metadata) {
		log.Printf("agent-demo: observed subject=%s from=%s", e.Subject, meta.FromAccountID)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime.Init(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(runtime.ConnectionStatus())
	})
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: ":8088", Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("agent-demo: status server error: %v", err)
		}
	}()

	announce := envelope.New("aexowork.jobs", runtime.Identity.AccountID, "JobPost", time.Now().UnixMilli())
	_ = announce.SetField("title", "agent-demo reference listing")
	if _, err := runtime.Publish(ctx, "aexowork.jobs", announce); err != nil {
		log.Printf("agent-demo: startup broadcast failed: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("agent-demo: received signal %s, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	runtime.Stop()
}
