// Package options contains flags and options for initializing the server.
package options

import (
	"fmt"
	"time"

	"github.com/kart-io/logger/option"
	"github.com/spf13/pflag"

	"github.com/kart-io/unibot/pkg/component/redis"
	"github.com/kart-io/unibot/pkg/llm/groq"
	"github.com/kart-io/unibot/pkg/llm/resilience"
)

// Token store backends.
const (
	TokenStoreMemory = "memory"
	TokenStoreRedis  = "redis"
	TokenStoreSQLite = "sqlite"
)

// HTTPOptions configures the HTTP server.
type HTTPOptions struct {
	// Addr is the listen address.
	Addr string `json:"addr" mapstructure:"addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// JWTOptions configures token issuing and revocation.
type JWTOptions struct {
	// Key is the HMAC signing key. Must be at least 32 bytes.
	Key string `json:"key" mapstructure:"key"`

	// Expiration is the token lifetime.
	Expiration time.Duration `json:"expiration" mapstructure:"expiration"`

	// Issuer is the iss claim.
	Issuer string `json:"issuer" mapstructure:"issuer"`

	// Store selects the revocation list backend (memory|redis|sqlite).
	Store string `json:"store" mapstructure:"store"`
}

// SQLiteOptions configures the database.
type SQLiteOptions struct {
	// Path is the database file, or ":memory:".
	Path string `json:"path" mapstructure:"path"`
}

// LLMOptions configures the model provider and the resilience policy
// wrapped around it.
type LLMOptions struct {
	// APIKey authenticates against the provider.
	APIKey string `json:"api-key" mapstructure:"api-key"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// ChatModel is the chat completion model.
	ChatModel string `json:"chat-model" mapstructure:"chat-model"`

	// EmbedModel is the embedding model.
	EmbedModel string `json:"embed-model" mapstructure:"embed-model"`

	// Timeout bounds each provider request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxTokens caps the completion length.
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens"`

	// RetryAttempts is the number of generation attempts per request.
	RetryAttempts int `json:"retry-attempts" mapstructure:"retry-attempts"`

	// FailureThreshold is the consecutive-failure count that trips the
	// assistant into its restart message.
	FailureThreshold int `json:"failure-threshold" mapstructure:"failure-threshold"`
}

// KnowledgeOptions configures the knowledge base.
type KnowledgeOptions struct {
	// Path is the knowledge text file.
	Path string `json:"path" mapstructure:"path"`

	// Watch enables hot-reload on file changes.
	Watch bool `json:"watch" mapstructure:"watch"`
}

// AdminOptions seeds the default administrator account.
type AdminOptions struct {
	Email    string `json:"email" mapstructure:"email"`
	Password string `json:"password" mapstructure:"password"`
	Name     string `json:"name" mapstructure:"name"`
}

// Options holds the full server configuration.
type Options struct {
	HTTP      *HTTPOptions      `json:"http" mapstructure:"http"`
	Log       *option.LogOption `json:"log" mapstructure:"log"`
	JWT       *JWTOptions       `json:"jwt" mapstructure:"jwt"`
	SQLite    *SQLiteOptions    `json:"sqlite" mapstructure:"sqlite"`
	Redis     *redis.Options    `json:"redis" mapstructure:"redis"`
	LLM       *LLMOptions       `json:"llm" mapstructure:"llm"`
	Knowledge *KnowledgeOptions `json:"knowledge" mapstructure:"knowledge"`
	Admin     *AdminOptions     `json:"admin" mapstructure:"admin"`

	// UploadsDir is the root of stored account images.
	UploadsDir string `json:"uploads-dir" mapstructure:"uploads-dir"`

	// AuditDir is the root of per-user chat history files.
	AuditDir string `json:"audit-dir" mapstructure:"audit-dir"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	groqDefaults := groq.DefaultConfig()

	return &Options{
		HTTP: &HTTPOptions{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Log: option.DefaultLogOption(),
		JWT: &JWTOptions{
			Expiration: 24 * time.Hour,
			Issuer:     "unibot",
			Store:      TokenStoreSQLite,
		},
		SQLite: &SQLiteOptions{Path: "unibot.db"},
		Redis:  redis.NewOptions(),
		LLM: &LLMOptions{
			BaseURL:          groqDefaults.BaseURL,
			ChatModel:        groqDefaults.ChatModel,
			EmbedModel:       groqDefaults.EmbedModel,
			Timeout:          groqDefaults.Timeout,
			Temperature:      groqDefaults.Temperature,
			MaxTokens:        groqDefaults.MaxTokens,
			RetryAttempts:    resilience.DefaultRetryConfig().MaxAttempts,
			FailureThreshold: resilience.DefaultFailureThreshold,
		},
		Knowledge: &KnowledgeOptions{
			Path:  "knowledge.txt",
			Watch: true,
		},
		Admin: &AdminOptions{
			Email:    "admin@campus.edu",
			Password: "admin123",
			Name:     "System Administrator",
		},
		UploadsDir: "uploads",
		AuditDir:   "chat_histories",
	}
}

// AddFlags registers all flags.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.HTTP.Addr, "http.addr", o.HTTP.Addr, "HTTP listen address")
	fs.DurationVar(&o.HTTP.ShutdownTimeout, "http.shutdown-timeout", o.HTTP.ShutdownTimeout, "Graceful shutdown timeout")

	fs.StringVar(&o.Log.Engine, "log.engine", o.Log.Engine, "Logging engine (zap|slog)")
	fs.StringVar(&o.Log.Level, "log.level", o.Log.Level, "Log level (DEBUG|INFO|WARN|ERROR|FATAL)")
	fs.StringVar(&o.Log.Format, "log.format", o.Log.Format, "Log format (json|console)")
	fs.StringSliceVar(&o.Log.OutputPaths, "log.output-paths", o.Log.OutputPaths, "Output paths for logs")
	fs.BoolVar(&o.Log.Development, "log.development", o.Log.Development, "Enable development mode")

	fs.StringVar(&o.JWT.Key, "jwt.key", o.JWT.Key, "JWT signing key (min 32 bytes)")
	fs.DurationVar(&o.JWT.Expiration, "jwt.expiration", o.JWT.Expiration, "Token lifetime")
	fs.StringVar(&o.JWT.Issuer, "jwt.issuer", o.JWT.Issuer, "Token issuer claim")
	fs.StringVar(&o.JWT.Store, "jwt.store", o.JWT.Store, "Revocation store backend (memory|redis|sqlite)")

	fs.StringVar(&o.SQLite.Path, "sqlite.path", o.SQLite.Path, "SQLite database path")

	fs.StringVar(&o.Redis.Addr, "redis.addr", o.Redis.Addr, "Redis address (required for jwt.store=redis)")
	fs.StringVar(&o.Redis.Password, "redis.password", o.Redis.Password, "Redis password")
	fs.IntVar(&o.Redis.DB, "redis.db", o.Redis.DB, "Redis database index")

	fs.StringVar(&o.LLM.APIKey, "llm.api-key", o.LLM.APIKey, "LLM provider API key")
	fs.StringVar(&o.LLM.BaseURL, "llm.base-url", o.LLM.BaseURL, "LLM provider base URL")
	fs.StringVar(&o.LLM.ChatModel, "llm.chat-model", o.LLM.ChatModel, "Chat completion model")
	fs.StringVar(&o.LLM.EmbedModel, "llm.embed-model", o.LLM.EmbedModel, "Embedding model")
	fs.DurationVar(&o.LLM.Timeout, "llm.timeout", o.LLM.Timeout, "Per-request provider timeout")
	fs.Float64Var(&o.LLM.Temperature, "llm.temperature", o.LLM.Temperature, "Sampling temperature")
	fs.IntVar(&o.LLM.MaxTokens, "llm.max-tokens", o.LLM.MaxTokens, "Completion token cap")
	fs.IntVar(&o.LLM.RetryAttempts, "llm.retry-attempts", o.LLM.RetryAttempts, "Generation attempts per request")
	fs.IntVar(&o.LLM.FailureThreshold, "llm.failure-threshold", o.LLM.FailureThreshold, "Consecutive failures before the assistant refuses with its restart message")

	fs.StringVar(&o.Knowledge.Path, "knowledge.path", o.Knowledge.Path, "Knowledge base text file")
	fs.BoolVar(&o.Knowledge.Watch, "knowledge.watch", o.Knowledge.Watch, "Rebuild the index when the knowledge file changes")

	fs.StringVar(&o.Admin.Email, "admin.email", o.Admin.Email, "Seed administrator email")
	fs.StringVar(&o.Admin.Password, "admin.password", o.Admin.Password, "Seed administrator password")
	fs.StringVar(&o.Admin.Name, "admin.name", o.Admin.Name, "Seed administrator display name")

	fs.StringVar(&o.UploadsDir, "uploads-dir", o.UploadsDir, "Root directory for uploaded images")
	fs.StringVar(&o.AuditDir, "audit-dir", o.AuditDir, "Root directory for per-user chat history files")
}

// Validate checks option consistency.
func (o *Options) Validate() error {
	if o.JWT.Key == "" {
		return fmt.Errorf("jwt.key is required")
	}
	switch o.JWT.Store {
	case TokenStoreMemory, TokenStoreRedis, TokenStoreSQLite:
	default:
		return fmt.Errorf("unknown jwt.store %q", o.JWT.Store)
	}
	if o.JWT.Store == TokenStoreRedis && o.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for jwt.store=redis")
	}
	if o.LLM.APIKey == "" {
		return fmt.Errorf("llm.api-key is required")
	}
	if o.SQLite.Path == "" {
		return fmt.Errorf("sqlite.path is required")
	}
	return o.Log.Validate()
}

// GroqConfig builds the provider configuration.
func (o *Options) GroqConfig() *groq.Config {
	return &groq.Config{
		BaseURL:     o.LLM.BaseURL,
		APIKey:      o.LLM.APIKey,
		EmbedModel:  o.LLM.EmbedModel,
		ChatModel:   o.LLM.ChatModel,
		Timeout:     o.LLM.Timeout,
		Temperature: o.LLM.Temperature,
		MaxTokens:   o.LLM.MaxTokens,
	}
}
