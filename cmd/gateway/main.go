package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"flashsale-gateway/middleware/access"
	accessdomain "flashsale-gateway/middleware/access/domain"
	accessinfra "flashsale-gateway/middleware/access/infra"
	"flashsale-gateway/seckill"
	"flashsale-gateway/seckill/application"
	"flashsale-gateway/seckill/domain"
	"flashsale-gateway/seckill/infra"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// infraestrutura compartilhada: Redis quando configurado, memória no dev
	var (
		kv       domain.KVStore
		ledger   domain.Ledger
		queue    purchaseQueue
		counters accessdomain.CounterStore
		rdb      *redis.Client
	)
	if cfg.redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			log.Fatalf("redis ping error: %v", err)
		}

		kv = infra.NewRedisKV(rdb)
		ledger = infra.NewRedisLedger(rdb)
		queue = infra.NewRedisQueue(rdb)
		counters = accessinfra.NewRedisCounterStore(rdb)
	} else {
		log.Printf("WARN: REDIS_ADDR not set, running with in-memory stores (single node only)")
		memKV := infra.NewMemoryKV()
		memCounters := accessinfra.NewMemoryCounterStore()
		startJanitor(ctx, 2*time.Minute, memKV.Cleanup, memCounters.Cleanup)

		kv = memKV
		ledger = infra.NewMemoryLedger()
		queue = infra.NewMemoryQueue()
		counters = memCounters
	}

	// diário de pedidos: Postgres em produção, memória no dev
	var journal domain.Journal
	if cfg.databaseURL != "" {
		pg, err := infra.NewPostgresJournal(cfg.databaseURL)
		if err != nil {
			log.Fatalf("postgres error: %v", err)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			log.Fatalf("postgres migrate error: %v", err)
		}
		journal = pg
	} else {
		log.Printf("WARN: DATABASE_URL not set, orders will not survive a restart")
		journal = infra.NewMemoryJournal()
	}

	resolver := application.SessionResolver{Store: kv}
	if err := seedStock(ctx, ledger, cfg.items); err != nil {
		log.Fatalf("seed stock error: %v", err)
	}
	if err := seedSessions(ctx, resolver, cfg.devSessions); err != nil {
		log.Fatalf("seed sessions error: %v", err)
	}

	// workers de fulfillment: drenam a fila e gravam pedidos
	worker := application.FulfillmentWorker{Ledger: ledger, Journal: journal}
	for i := 0; i < cfg.workers; i++ {
		go func(n int) {
			if err := queue.Consume(ctx, cfg.queueTopic, worker.Handle); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("worker %d stopped: %v", n, err)
			}
		}(i)
	}

	var statsStore accessdomain.StatsStore
	if cfg.statsEnabled {
		if rdb != nil {
			statsStore = accessinfra.NewRedisStatsStore(
				rdb,
				accessinfra.WithStatsTTL(cfg.statsTTL),
				accessinfra.WithStatsTrackKeys(cfg.statsTrackKeys),
			)
		} else {
			statsStore = accessinfra.NewMemoryStatsStore()
		}
	}

	var guard access.LocalGuard
	if cfg.guardRPS > 0 {
		bg := accessinfra.NewBucketGuard(cfg.guardRPS, cfg.guardBurst)
		bg.StartJanitor(ctx)
		guard = bg
	}

	baseOpts := access.Options{
		Counters:           counters,
		Resolver:           resolver,
		Stats:              statsStore,
		Guard:              guard,
		TrustXForwardedFor: cfg.trustXFF,
		AcquireTimeout:     cfg.acquireTimeout,
		AddPolicyHeaders:   cfg.addPolicyHeaders,
	}

	admitOpts := baseOpts
	admitOpts.Policy = accessdomain.Policy{
		Window:           cfg.accessWindow,
		MaxCount:         cfg.accessMax,
		RequiresIdentity: true,
		FailOpen:         cfg.failOpen,
		MaxConcurrent:    cfg.maxConcurrent,
	}
	admit := access.Middleware(admitOpts)

	// consulta de resultado: mesmo gate, orçamento mais folgado (é poll)
	pollOpts := baseOpts
	pollOpts.Policy = accessdomain.Policy{
		Window:           cfg.accessWindow,
		MaxCount:         cfg.resultMax,
		RequiresIdentity: true,
		FailOpen:         cfg.failOpen,
	}
	poll := access.Middleware(pollOpts)

	tokens := application.PathTokenService{Store: kv, TTL: cfg.pathTTL, Salt: cfg.pathSalt}
	api := &seckill.API{
		Challenges: application.ChallengeService{Store: kv, TTL: cfg.challengeTTL},
		Tokens:     tokens,
		Orders: application.Service{
			Tokens: tokens,
			Ledger: ledger, Journal: journal, Queue: queue,
			Topic: cfg.queueTopic,
		},
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"window": cfg.accessWindow.String(),
			"max":    cfg.accessMax,
		})
	})
	r.Route("/seckill", func(r chi.Router) {
		api.Mount(r, admit, poll)
	})

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("flash-sale gateway listening on %s", cfg.listenAddr)
	log.Printf("access: window=%s max=%d resultMax=%d failOpen=%v maxConcurrent=%d trustXFF=%v", cfg.accessWindow, cfg.accessMax, cfg.resultMax, cfg.failOpen, cfg.maxConcurrent, cfg.trustXFF)
	log.Printf("guard: rps=%.1f burst=%d", cfg.guardRPS, cfg.guardBurst)
	log.Printf("queue: topic=%q workers=%d", cfg.queueTopic, cfg.workers)
	log.Printf("items: %d seeded", len(cfg.items))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

// purchaseQueue junta os dois lados da fila de intenções: o HTTP publica e os
// workers consomem.
type purchaseQueue interface {
	domain.Publisher
	domain.Consumer
}

// startJanitor dispara limpezas periódicas dos stores em memória.
func startJanitor(ctx context.Context, every time.Duration, fns ...func()) {
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				for _, fn := range fns {
					fn()
				}
			}
		}
	}()
}

type stockItem struct {
	id    domain.ItemID
	units int64
}

type devSession struct {
	credential string
	buyer      domain.BuyerID
}

func seedStock(ctx context.Context, ledger domain.Ledger, items []stockItem) error {
	for _, it := range items {
		if err := ledger.SeedStock(ctx, it.id, it.units); err != nil {
			return err
		}
		log.Printf("stock: %s = %d", it.id, it.units)
	}
	return nil
}

func seedSessions(ctx context.Context, resolver application.SessionResolver, sessions []devSession) error {
	for _, s := range sessions {
		if err := resolver.Grant(ctx, s.credential, s.buyer, 0); err != nil {
			return err
		}
		log.Printf("session: credential %q => buyer %q", s.credential, s.buyer)
	}
	return nil
}

type config struct {
	listenAddr string

	redisAddr     string
	redisPassword string
	redisDB       int
	databaseURL   string

	items       []stockItem
	devSessions []devSession

	queueTopic string
	workers    int

	challengeTTL time.Duration
	pathTTL      time.Duration
	pathSalt     string

	accessWindow     time.Duration
	accessMax        int64
	resultMax        int64
	failOpen         bool
	maxConcurrent    int
	acquireTimeout   time.Duration
	trustXFF         bool
	addPolicyHeaders bool

	guardRPS   float64
	guardBurst int

	statsEnabled   bool
	statsTTL       time.Duration
	statsTrackKeys bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")

	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)
	cfg.databaseURL = os.Getenv("DATABASE_URL")

	items, err := parseItems(os.Getenv("ITEMS"))
	if err != nil {
		return config{}, err
	}
	cfg.items = items

	sessions, err := parseSessions(os.Getenv("DEV_SESSIONS"))
	if err != nil {
		return config{}, err
	}
	cfg.devSessions = sessions

	cfg.queueTopic = getenvDefault("QUEUE_TOPIC", application.DefaultTopic)
	cfg.workers = getenvIntDefault("WORKERS", 2)

	cfg.challengeTTL = getenvDurationDefault("CHALLENGE_TTL", 60*time.Second)
	cfg.pathTTL = getenvDurationDefault("PATH_TTL", 60*time.Second)
	cfg.pathSalt = os.Getenv("PATH_SALT")

	cfg.accessWindow = getenvDurationDefault("ACCESS_WINDOW", 5*time.Second)
	cfg.accessMax = int64(getenvIntDefault("ACCESS_MAX", 5))
	cfg.resultMax = int64(getenvIntDefault("ACCESS_RESULT_MAX", 60))
	cfg.failOpen = getenvBoolDefault("ACCESS_FAIL_OPEN", false)
	cfg.maxConcurrent = getenvIntDefault("ACCESS_MAX_CONCURRENT", 0)
	cfg.acquireTimeout = getenvDurationDefault("ACCESS_ACQUIRE_TIMEOUT", 0)
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.addPolicyHeaders = getenvBoolDefault("ADD_POLICY_HEADERS", false)

	cfg.guardRPS = getenvFloatDefault("GUARD_RPS", 50)
	cfg.guardBurst = getenvIntDefault("GUARD_BURST", 100)

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsTrackKeys = getenvBoolDefault("STATS_TRACK_KEYS", false)

	if cfg.accessWindow <= 0 {
		return config{}, errors.New("ACCESS_WINDOW must be > 0")
	}
	if cfg.accessMax <= 0 {
		return config{}, errors.New("ACCESS_MAX must be > 0")
	}
	if cfg.resultMax <= 0 {
		return config{}, errors.New("ACCESS_RESULT_MAX must be > 0")
	}
	if cfg.workers <= 0 {
		return config{}, errors.New("WORKERS must be > 0")
	}
	if cfg.guardRPS > 0 && cfg.guardBurst <= 0 {
		return config{}, errors.New("GUARD_BURST must be > 0 when GUARD_RPS > 0")
	}
	return cfg, nil
}

// parseItems lê "ipad:100,iphone:5" em pares item/estoque.
func parseItems(raw string) ([]stockItem, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var items []stockItem
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, unitsRaw, ok := strings.Cut(part, ":")
		if !ok {
			return nil, errors.New("ITEMS must look like item:count,item:count")
		}
		units, err := strconv.ParseInt(strings.TrimSpace(unitsRaw), 10, 64)
		if err != nil || units < 0 {
			return nil, errors.New("ITEMS stock count must be a non-negative integer")
		}
		items = append(items, stockItem{id: domain.ItemID(strings.TrimSpace(id)), units: units})
	}
	return items, nil
}

// parseSessions lê "credencial:comprador,..." para seed de desenvolvimento.
func parseSessions(raw string) ([]devSession, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var sessions []devSession
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cred, buyer, ok := strings.Cut(part, ":")
		if !ok || strings.TrimSpace(cred) == "" || strings.TrimSpace(buyer) == "" {
			return nil, errors.New("DEV_SESSIONS must look like credential:buyer,credential:buyer")
		}
		sessions = append(sessions, devSession{
			credential: strings.TrimSpace(cred),
			buyer:      domain.BuyerID(strings.TrimSpace(buyer)),
		})
	}
	return sessions, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
