package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr        string
	DBDSN           string
	RedisAddr       string
	RedisPassword   string
	JWTIssuer       string
	JWTSecret       string
	WebSocketOrigin string
	AppMode         string
	DemoDeposit     decimal.Decimal
	TickMaxAge      time.Duration
}

func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.RedisAddr = os.Getenv("REDIS_ADDR")
	if c.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	c.RedisPassword = os.Getenv("REDIS_PASSWORD")
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}
	c.AppMode = strings.ToLower(strings.TrimSpace(os.Getenv("APP_MODE")))
	if c.AppMode == "" {
		c.AppMode = "development"
	}
	if c.AppMode != "development" && c.AppMode != "production" {
		return c, errors.New("invalid APP_MODE: use development or production")
	}
	demoDeposit := os.Getenv("DEMO_DEPOSIT")
	if demoDeposit == "" {
		demoDeposit = "10000"
	}
	d, err := decimal.NewFromString(demoDeposit)
	if err != nil {
		return c, errors.New("invalid DEMO_DEPOSIT")
	}
	c.DemoDeposit = d
	tickMaxAge := os.Getenv("TICK_MAX_AGE")
	if tickMaxAge == "" {
		tickMaxAge = "15s"
	}
	age, err := time.ParseDuration(tickMaxAge)
	if err != nil {
		return c, errors.New("invalid TICK_MAX_AGE")
	}
	c.TickMaxAge = age
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}

func (c Config) Production() bool { return c.AppMode == "production" }
