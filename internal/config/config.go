package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort         string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv           string `env:"APP_ENV" envDefault:"production"`
	DatabaseURL      string `env:"DATABASE_URL,required"`
	DBAutoMigrate    bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`
	DBConnectRetries uint64 `env:"DB_CONNECT_RETRIES" envDefault:"5"`

	JWTSecret            string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer            string `env:"JWT_ISSUER" envDefault:"marketplace"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"30"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"20160"`
	BcryptCost           int    `env:"BCRYPT_COST" envDefault:"10"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LoginRateWindowSeconds int `env:"LOGIN_RATE_WINDOW_SECONDS" envDefault:"300"`
	LoginRateMax           int `env:"LOGIN_RATE_MAX" envDefault:"10"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	OAuthTimeoutSeconds int                 `env:"OAUTH_TIMEOUT_SECONDS" envDefault:"10"`
	Naver               OAuthProviderConfig `envPrefix:"NAVER_"`
	Kakao               OAuthProviderConfig `envPrefix:"KAKAO_"`
	Google              OAuthProviderConfig `envPrefix:"GOOGLE_"`
}

// OAuthProviderConfig agrupa credenciales y endpoints de un proveedor OAuth.
// Un proveedor sin ClientID queda deshabilitado.
type OAuthProviderConfig struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	RedirectURL  string   `env:"REDIRECT_URL"`
	AuthURL      string   `env:"AUTH_URL"`
	TokenURL     string   `env:"TOKEN_URL"`
	UserInfoURL  string   `env:"USER_INFO_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
}

func (c OAuthProviderConfig) Enabled() bool {
	return c.ClientID != ""
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
