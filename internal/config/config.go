package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	Database    Database
	AppURL      string `env:"APP_URL" envDefault:"http://localhost:3000"`

	// shared with the admin promotion endpoint
	AdminInviteCode string `env:"ADMIN_INVITE_CODE"`
	SupportEmail    string `env:"SUPPORT_EMAIL" envDefault:"support@jwfitness.co"`
	// appended to every receipt email
	ReceiptMessage string `env:"RECEIPT_MESSAGE"`

	Stripe Stripe `envPrefix:"STRIPE_"`
	Resend Resend `envPrefix:"RESEND_"`
	Redis  Redis  `envPrefix:"REDIS_"`
	Auth   Auth   `envPrefix:"AUTH_"`
}

type Stripe struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

type Resend struct {
	APIKey    string `env:"API_KEY"`
	FromEmail string `env:"FROM_EMAIL" envDefault:"J-W Fitness Coaching <no-reply@jwfitness.co>"`
}

type Redis struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	TTL      time.Duration `env:"TTL" envDefault:"10m"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
	// optional: tokens must carry this audience when set
	Audience string `env:"AUDIENCE" envDefault:"authenticated"`
}

type Database struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
	URL    string `env:"DATABASE_URL" envDefault:"coursecart.db"`
	// read replica used for caller-scoped profile reads; empty means URL
	ReadURL string `env:"DATABASE_READ_URL"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
