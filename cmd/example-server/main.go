package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flashsale-gateway/middleware/access"
	"flashsale-gateway/middleware/access/domain"
	"flashsale-gateway/middleware/access/infra"
)

func main() {
	// Exemplo: injetando o gate de admissão diretamente no seu webserver,
	// tudo em memória (sem Redis, sem sessão)
	counters := infra.NewMemoryCounterStore()
	guard := infra.NewBucketGuard(5, 10)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	guard.StartJanitor(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	h := http.Handler(mux)
	h = access.Middleware(access.Options{
		Policy: domain.Policy{
			Window:        10 * time.Second,
			MaxCount:      20,
			MaxConcurrent: 50,
		},
		Counters:           counters,
		Guard:              guard,
		TrustXForwardedFor: true,
		AddPolicyHeaders:   true,
	})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("example server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
