package config

// Config holds all application configuration.
// It is populated once at startup by Load and passed explicitly to components.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm"        validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port               int      `mapstructure:"port"                 validate:"required,gt=0,lt=65536"`
	LogLevel           string   `mapstructure:"log_level"            validate:"required,oneof=debug info warn error"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains token signing settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=44640"`
}

// LLMConfig contains settings for the chat-completion provider.
type LLMConfig struct {
	Provider       string  `mapstructure:"provider"        validate:"required,oneof=openrouter gemini"`
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"        validate:"required,url"`
	Model          string  `mapstructure:"model"           validate:"required"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"required,gt=0,lte=300"`
	Temperature    float64 `mapstructure:"temperature"     validate:"gte=0,lte=2"`
	MaxTokens      int     `mapstructure:"max_tokens"      validate:"gte=0"`
	HTTPReferer    string  `mapstructure:"http_referer"`
	AppTitle       string  `mapstructure:"app_title"`
}

// GenerationConfig bounds generation requests. Input bounds must stay within
// the generations.source_text_length CHECK (1000..10000).
type GenerationConfig struct {
	MinInputLength     int     `mapstructure:"min_input_length"      validate:"required,gte=1000"`
	MaxInputLength     int     `mapstructure:"max_input_length"      validate:"required,lte=10000,gtefield=MinInputLength"`
	RateLimitPerMinute float64 `mapstructure:"rate_limit_per_minute" validate:"gte=0"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst"      validate:"gte=0"`
}
