package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter guarda um token bucket por chave. Entradas paradas há mais de
// maxAge são descartadas na passada de limpeza, para o mapa não crescer com
// IPs de passagem.
type RateLimiter struct {
	limite   rate.Limit
	burst    int
	mu       sync.Mutex
	entradas map[string]*entradaLimiter
	maxAge   time.Duration
}

type entradaLimiter struct {
	limiter *rate.Limiter
	usadaEm time.Time
}

func NewRateLimiter(reqPorSeg float64, burst int) *RateLimiter {
	return &RateLimiter{
		limite:   rate.Limit(reqPorSeg),
		burst:    burst,
		entradas: make(map[string]*entradaLimiter),
		maxAge:   10 * time.Minute,
	}
}

func (r *RateLimiter) limiter(chave string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entradas[chave]; ok {
		e.usadaEm = time.Now()
		return e.limiter
	}

	lim := rate.NewLimiter(r.limite, r.burst)
	r.entradas[chave] = &entradaLimiter{limiter: lim, usadaEm: time.Now()}

	for k, e := range r.entradas {
		if time.Since(e.usadaEm) > r.maxAge {
			delete(r.entradas, k)
		}
	}

	return lim
}

// LimitByKey aplica o limite por chave extraída da requisição. Sem chave,
// a requisição passa direto.
func (r *RateLimiter) LimitByKey(next http.Handler, chaveDe func(*http.Request) (string, bool)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		chave, ok := chaveDe(req)
		if !ok || chave == "" {
			next.ServeHTTP(w, req)
			return
		}

		if !r.limiter(chave).Allow() {
			w.Header().Set("Retry-After", "1")
			writeErro(w, http.StatusTooManyRequests, "RATE_LIMIT", "Limite de requisições excedido")
			return
		}

		next.ServeHTTP(w, req)
	})
}

// IPRateLimit protege as rotas públicas (login, convites) usando o IP
// remoto como chave.
func IPRateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return limiter.LimitByKey(next, func(r *http.Request) (string, bool) {
			return realIPFromRequest(r), true
		})
	}
}

// UserRateLimit usa o uid autenticado como chave nas rotas com sessão.
func UserRateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return limiter.LimitByKey(next, func(r *http.Request) (string, bool) {
			subject := GetSubject(r.Context())
			if subject == "" {
				return "", false
			}
			return subject, true
		})
	}
}

// realIPFromRequest prefere os cabeçalhos do proxy reverso e cai para o
// RemoteAddr quando a API é exposta direto.
func realIPFromRequest(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); ip != "" {
		parts := strings.Split(ip, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
