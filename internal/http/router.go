package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gestaoebd/plataforma/internal/acesso"
	"github.com/gestaoebd/plataforma/internal/audit"
	"github.com/gestaoebd/plataforma/internal/auth"
	"github.com/gestaoebd/plataforma/internal/cadastro"
	"github.com/gestaoebd/plataforma/internal/cascade"
	"github.com/gestaoebd/plataforma/internal/comprovante"
	"github.com/gestaoebd/plataforma/internal/config"
	"github.com/gestaoebd/plataforma/internal/convite"
	"github.com/gestaoebd/plataforma/internal/docstore"
	"github.com/gestaoebd/plataforma/internal/fanout"
	httpmiddleware "github.com/gestaoebd/plataforma/internal/http/middleware"
	"github.com/gestaoebd/plataforma/internal/identity"
	"github.com/gestaoebd/plataforma/internal/mail"
	"github.com/gestaoebd/plataforma/internal/matricula"
	"github.com/gestaoebd/plataforma/internal/push"
	"github.com/gestaoebd/plataforma/internal/relatorio"
	"github.com/gestaoebd/plataforma/internal/sessao"
	"github.com/gestaoebd/plataforma/internal/storage"
	"github.com/gestaoebd/plataforma/internal/visitante"
)

const readyTimeout = 3 * time.Second

// Handler agrega as dependências compartilhadas das rotas.
type Handler struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	redis   *redis.Client
	sessoes *sessao.Service
}

// NewRouter monta todos os serviços sobre o banco de documentos e devolve o
// roteador configurado.
func NewRouter(cfg *config.Config, store docstore.Store, pool *pgxpool.Pool, redisClient *redis.Client) (http.Handler, error) {
	auditor := audit.NewRecorder()
	contas := identity.NewDocstoreProvider(store)
	resolver := acesso.NewResolver(store)

	var mailer mail.Mailer = mail.NoopMailer{}
	if cfg.ResendAPIKey != "" {
		mailer = mail.NewResendMailer(cfg.ResendAPIKey, cfg.MailFrom)
	}

	var uploader storage.Uploader = storage.NoopUploader{}
	var remover storage.Remover = storage.NoopUploader{}
	if cfg.Storage.Enabled() {
		s3, err := storage.NewS3Uploader(storage.S3Config{
			Endpoint:     cfg.Storage.Endpoint,
			Region:       cfg.Storage.Region,
			Bucket:       cfg.Storage.Bucket,
			AccessKey:    cfg.Storage.AccessKey,
			SecretKey:    cfg.Storage.SecretKey,
			PublicDomain: cfg.Storage.PublicDomain,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		uploader = s3
		remover = s3
	}

	var avisador matricula.Avisador
	if cfg.PushEndpoint != "" {
		dispatcher := push.NewHTTPDispatcher(cfg.PushEndpoint, cfg.PushAPIKey)
		avisador = push.NewNotificador(store, dispatcher)
	}

	fan := fanout.New(store)
	casc := cascade.New(store, contas, auditor)

	cadastros := cadastro.NewService(store, fan, casc, contas, auditor)
	matriculas := matricula.NewService(store, fan, auditor, avisador)
	relatorios := relatorio.NewService(store, redisClient)
	visitantes := visitante.NewService(store, auditor)
	convites := convite.NewService(store, mailer, auditor)
	comprovantes := comprovante.NewService(store, uploader, remover)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	sessoes := sessao.NewService(contas, resolver, jwtManager, redisClient, cfg.JWTRefreshTTL)

	h := &Handler{
		cfg:     cfg,
		pool:    pool,
		redis:   redisClient,
		sessoes: sessoes,
	}

	publicLimiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst)
	authLimiter := httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst)

	cadastroHandler := cadastro.NewHandler(cadastros, convites)
	matriculaHandler := matricula.NewHandler(matriculas, casc)
	relatorioHandler := relatorio.NewHandler(relatorios)
	visitanteHandler := visitante.NewHandler(visitantes)
	conviteHandler := convite.NewHandler(convites)
	comprovanteHandler := comprovante.NewHandler(comprovantes)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Login)
			auth.Post("/refresh", h.Refresh)
			auth.Post("/logout", h.Logout)
		})

		conviteHandler.RegisterPublicRoutes(public)
		cadastroHandler.RegisterPublicRoutes(public)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(h.sessoes.JWT()))
		private.Use(httpmiddleware.UserRateLimit(authLimiter))
		private.Use(httpmiddleware.Scope(resolver))

		private.Get("/me", h.Me)

		cadastroHandler.RegisterRoutes(private)
		matriculaHandler.RegisterRoutes(private)
		comprovanteHandler.RegisterRoutes(private)

		private.Route("/relatorios", func(rel chi.Router) {
			relatorioHandler.RegisterRoutes(rel)
		})
		private.Route("/visitantes", func(vis chi.Router) {
			visitanteHandler.RegisterRoutes(vis)
		})
		private.Route("/convites", func(conv chi.Router) {
			conviteHandler.RegisterRoutes(conv)
		})
	})

	return r, nil
}
