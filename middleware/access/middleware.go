package access

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"flashsale-gateway/middleware/access/application"
	"flashsale-gateway/middleware/access/domain"
	"flashsale-gateway/middleware/access/infra"
)

// CredentialFunc extrai a credencial opaca do comprador (cookie/header/query).
type CredentialFunc func(r *http.Request) string

// KeyFunc extrai a chave do cliente para o token bucket local (normalmente IP).
type KeyFunc func(r *http.Request) string

// LocalGuard é o mínimo que o middleware precisa do token bucket local.
type LocalGuard interface {
	Allow(key string) bool
}

type Options struct {
	// Policy declara a regra da rota: janela, máximo, identidade, concorrência.
	Policy domain.Policy

	// Counters é a janela fixa compartilhada (Redis em produção).
	Counters domain.CounterStore

	// Resolver traduz credencial em comprador. Pode ser nil (tudo anônimo).
	Resolver domain.IdentityResolver

	// Stats registra decisões (best-effort). Pode ser nil.
	Stats domain.StatsStore

	// Guard segura rajadas por cliente antes de ir ao store compartilhado.
	// Pode ser nil.
	Guard LocalGuard

	// Route identifica a rota na chave do contador. Default: r.URL.Path.
	Route string

	CredentialFn     CredentialFunc
	CredentialHeader string // default "X-Auth-Token"
	CredentialCookie string // default "token"

	KeyFn              KeyFunc
	TrustXForwardedFor bool

	// AcquireTimeout limita a espera por vaga quando MaxConcurrent > 0.
	AcquireTimeout time.Duration

	// AddPolicyHeaders expõe a política nos headers de resposta.
	AddPolicyHeaders bool
}

// DefaultCredentialFunc lê a credencial do header, do cookie ou do query param,
// nesta ordem (o original aceitava cookie e parâmetro).
func DefaultCredentialFunc(header, cookie string) CredentialFunc {
	return func(r *http.Request) string {
		if header != "" {
			if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
				return v
			}
		}
		if cookie != "" {
			if c, err := r.Cookie(cookie); err == nil {
				if v := strings.TrimSpace(c.Value); v != "" {
					return v
				}
			}
			if v := strings.TrimSpace(r.URL.Query().Get(cookie)); v != "" {
				return v
			}
		}
		return ""
	}
}

// DefaultKeyFunc extrai a chave do cliente para o guard local.
func DefaultKeyFunc(trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				parts := strings.Split(xff, ",")
				if len(parts) > 0 {
					ip := strings.TrimSpace(parts[0])
					if ip != "" {
						return ip
					}
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// Middleware devolve o gate de admissão configurado pela política da rota.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.CredentialHeader == "" {
		opts.CredentialHeader = "X-Auth-Token"
	}
	if opts.CredentialCookie == "" {
		opts.CredentialCookie = "token"
	}
	if opts.CredentialFn == nil {
		opts.CredentialFn = DefaultCredentialFunc(opts.CredentialHeader, opts.CredentialCookie)
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.TrustXForwardedFor)
	}

	svc := application.Service{
		Store:  opts.Counters,
		Policy: opts.Policy,
	}

	var conc application.ConcurrencyService
	if opts.Policy.MaxConcurrent > 0 {
		conc = application.ConcurrencyService{
			Pool:           infra.NewChanPool(opts.Policy.MaxConcurrent),
			AcquireTimeout: opts.AcquireTimeout,
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := opts.Route
			if route == "" {
				route = r.URL.Path
			}

			if opts.AddPolicyHeaders {
				w.Header().Set("X-Access-Window", opts.Policy.Window.String())
				w.Header().Set("X-Access-Max", formatInt(int(opts.Policy.MaxCount)))
			}

			// 1) identidade
			buyerID, identified, err := resolveBuyer(r, opts)
			if err != nil {
				// store de sessão fora do ar: só barra quem precisa de login
				if opts.Policy.RequiresIdentity && !opts.Policy.FailOpen {
					render(w, http.StatusServiceUnavailable, CodeTryAgain, "identity store unavailable, try again")
					return
				}
				identified = false
			}
			if opts.Policy.RequiresIdentity && !identified {
				render(w, http.StatusUnauthorized, CodeSessionError, "login required")
				return
			}

			// 2) rajada local (antes de gastar uma ida ao Redis)
			if opts.Guard != nil && !opts.Guard.Allow(opts.KeyFn(r)) {
				recordStats(r, opts, domain.Key(route), false)
				render(w, http.StatusTooManyRequests, CodeAccessLimitReached, "access limit reached")
				return
			}

			// 3) janela fixa compartilhada: rota (+ comprador, quando identificado)
			key := domain.Key(route)
			if identified {
				key = domain.Key(route + "_" + buyerID)
			}

			dec, err := svc.Admit(r.Context(), key)
			if err != nil {
				// errors.Is por higiene; Admit só devolve ErrStoreUnavailable hoje
				if !errors.Is(err, domain.ErrStoreUnavailable) || !opts.Policy.FailOpen {
					render(w, http.StatusServiceUnavailable, CodeTryAgain, "rate limiter unavailable, try again")
					return
				}
				dec = domain.Decision{Allowed: true}
			}

			if !dec.Allowed {
				recordStats(r, opts, key, false)
				w.Header().Set("Retry-After", formatInt(int(dec.RetryAfter.Seconds())))
				render(w, http.StatusTooManyRequests, CodeAccessLimitReached, "access limit reached")
				return
			}

			// 4) vaga de concorrência da rota
			if opts.Policy.MaxConcurrent > 0 {
				release, ok := conc.Acquire(r.Context())
				if !ok {
					recordStats(r, opts, key, false)
					render(w, http.StatusServiceUnavailable, CodeTooManyInFlight, "too many requests in flight")
					return
				}
				defer release()
			}

			// stats registram a decisão final: allow só depois de passar por
			// janela E vaga de concorrência
			recordStats(r, opts, key, true)

			if identified {
				r = r.WithContext(WithBuyer(r.Context(), buyerID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveBuyer(r *http.Request, opts Options) (string, bool, error) {
	if opts.Resolver == nil {
		return "", false, nil
	}
	cred := opts.CredentialFn(r)
	if cred == "" {
		return "", false, nil
	}
	return opts.Resolver.Resolve(r.Context(), cred)
}

func recordStats(r *http.Request, opts Options, key domain.Key, allowed bool) {
	if opts.Stats == nil {
		return
	}
	_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
		Key:     key,
		Allowed: allowed,
		Method:  r.Method,
		Path:    r.URL.Path,
		At:      time.Now(),
	})
}
