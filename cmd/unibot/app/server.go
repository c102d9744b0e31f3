package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/unibot/cmd/unibot/app/options"
	"github.com/kart-io/unibot/internal/pkg/validation"
	"github.com/kart-io/unibot/internal/unibot/audit"
	"github.com/kart-io/unibot/internal/unibot/biz"
	"github.com/kart-io/unibot/internal/unibot/bot"
	"github.com/kart-io/unibot/internal/unibot/handler"
	"github.com/kart-io/unibot/internal/unibot/realtime"
	"github.com/kart-io/unibot/internal/unibot/router"
	"github.com/kart-io/unibot/internal/unibot/store"
	"github.com/kart-io/unibot/internal/unibot/upload"
	"github.com/kart-io/unibot/pkg/auth/jwt"
	redisclient "github.com/kart-io/unibot/pkg/component/redis"
	"github.com/kart-io/unibot/pkg/llm/groq"
	"github.com/kart-io/unibot/pkg/llm/resilience"
)

// Run assembles and runs the server until ctx is cancelled.
func Run(ctx context.Context, opts *options.Options) error {
	if err := validation.Register(); err != nil {
		return fmt.Errorf("register validations: %w", err)
	}

	factory, err := store.New(opts.SQLite.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer factory.Close()

	tokenStore, closeTokens, err := newTokenStore(ctx, opts, factory)
	if err != nil {
		return err
	}
	defer closeTokens()

	authn, err := jwt.New(
		jwt.WithKey(opts.JWT.Key),
		jwt.WithExpired(opts.JWT.Expiration),
		jwt.WithIssuer(opts.JWT.Issuer),
		jwt.WithStore(tokenStore),
	)
	if err != nil {
		return fmt.Errorf("init authenticator: %w", err)
	}

	if err := biz.EnsureAdmin(ctx, factory, opts.Admin.Email, opts.Admin.Password, opts.Admin.Name); err != nil {
		return fmt.Errorf("seed administrator: %w", err)
	}

	provider := groq.NewProviderWithConfig(opts.GroqConfig())

	index := bot.NewIndex(provider)
	knowledge := bot.NewKnowledgeBase(opts.Knowledge.Path, index)
	if err := knowledge.Load(ctx); err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}
	if opts.Knowledge.Watch {
		if err := knowledge.Watch(ctx); err != nil {
			return fmt.Errorf("watch knowledge base: %w", err)
		}
	}
	defer func() { _ = knowledge.Close() }()

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = opts.LLM.RetryAttempts
	assistant := bot.NewAssistant(provider,
		bot.WithRetryConfig(retryCfg),
		bot.WithFailureThreshold(opts.LLM.FailureThreshold),
	)

	sink, err := audit.NewSink(opts.AuditDir)
	if err != nil {
		return fmt.Errorf("init audit sink: %w", err)
	}
	uploads, err := upload.NewStore(opts.UploadsDir)
	if err != nil {
		return fmt.Errorf("init upload store: %w", err)
	}

	authSvc := biz.NewAuthService(authn, factory)
	userSvc := biz.NewUserService(factory)
	chatSvc := biz.NewChatService(factory, assistant, index, sink)
	historySvc := biz.NewHistoryService(factory)
	supportSvc := biz.NewSupportService(factory)

	hub := realtime.NewHub(authn, supportSvc)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	router.Register(engine, authn, &router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc, uploads),
		User:       handler.NewUserHandler(userSvc),
		Chat:       handler.NewChatHandler(chatSvc),
		History:    handler.NewHistoryHandler(historySvc),
		Support:    handler.NewSupportHandler(supportSvc, hub),
		ServeWS:    hub.ServeWS,
		UploadsDir: uploads.Root(),
	})

	server := &http.Server{
		Addr:    opts.HTTP.Addr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("server listening", "addr", opts.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newTokenStore builds the revocation backend named in the options. The
// sqlite backend persists revocations in the main database so they survive
// restarts without extra infrastructure.
func newTokenStore(ctx context.Context, opts *options.Options, factory store.Factory) (jwt.Store, func(), error) {
	switch opts.JWT.Store {
	case options.TokenStoreMemory:
		s := jwt.NewMemoryStore()
		return s, func() { _ = s.Close() }, nil

	case options.TokenStoreRedis:
		client, err := redisclient.New(ctx, opts.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return jwt.NewRedisStore(client, "unibot:revoked:"), func() { _ = client.Close() }, nil

	default:
		return factory.RevokedTokens(), func() {}, nil
	}
}
