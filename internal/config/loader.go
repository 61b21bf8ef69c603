package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/homevisit/internal/clock"
	"github.com/example/homevisit/internal/logging"
)

// Prefix is prepended to every variable name read by Load.
const Prefix = "HOMEVISIT_"

// DefaultSQLiteDSN enables foreign keys, waits on locks and takes the write
// lock when a transaction begins.
const DefaultSQLiteDSN = "file:homevisit.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

var (
	knownDrivers   = []string{"sqlite", "mysql", "postgres", "memory"}
	knownNotifiers = []string{"log", "smtp", "sendgrid", "amqp"}
)

// Config captures environment driven configuration values for the homevisit service.
type Config struct {
	HTTPPort               int
	DBDriver               string
	DBDSN                  string
	SourceTimezone         string
	HideWeeksAfter         int
	DefaultDurationMinutes int
	PhoneRegion            string
	LogLevel               slog.Level

	AdminPasswordHash string
	JWTSecret         string
	JWTTTL            time.Duration

	Notifiers      []string
	NotifyTo       string
	MailFrom       string
	SMTPAddr       string
	SMTPUsername   string
	SMTPPassword   string
	SendGridAPIKey string
	AMQPURL        string
	AMQPQueue      string

	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	RateLimitCapacity       int
	RateLimitRefillInterval time.Duration
}

// LoadDotEnv seeds the process environment from path. Variables already set
// win, and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom parses configuration values using lookup. Every invalid value is
// reported in a single error.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{
		HTTPPort:                8080,
		DBDriver:                "sqlite",
		DBDSN:                   DefaultSQLiteDSN,
		SourceTimezone:          clock.DefaultZoneName,
		HideWeeksAfter:          12,
		DefaultDurationMinutes:  60,
		PhoneRegion:             "US",
		LogLevel:                slog.LevelInfo,
		JWTTTL:                  12 * time.Hour,
		Notifiers:               []string{"log"},
		MailFrom:                "homevisit@localhost",
		AMQPQueue:               "booking.confirmed",
		RateLimitCapacity:       10,
		RateLimitRefillInterval: time.Minute,
	}

	p := parser{lookup: lookup}

	p.positiveInt("HTTP_PORT", &cfg.HTTPPort)
	if driver, ok := p.get("DB_DRIVER"); ok {
		driver = strings.ToLower(driver)
		if slices.Contains(knownDrivers, driver) {
			cfg.DBDriver = driver
		} else {
			p.invalid = append(p.invalid, Prefix+"DB_DRIVER")
		}
	}
	p.str("DB_DSN", &cfg.DBDSN)
	if zone, ok := p.get("SOURCE_TIMEZONE"); ok {
		if _, err := clock.LoadZone(zone); err != nil {
			p.invalid = append(p.invalid, Prefix+"SOURCE_TIMEZONE")
		} else {
			cfg.SourceTimezone = zone
		}
	}
	p.positiveInt("HIDE_WEEKS_AFTER", &cfg.HideWeeksAfter)
	p.positiveInt("DEFAULT_DURATION_MINUTES", &cfg.DefaultDurationMinutes)
	p.str("PHONE_REGION", &cfg.PhoneRegion)
	cfg.PhoneRegion = strings.ToUpper(cfg.PhoneRegion)
	if level, ok := p.get("LOG_LEVEL"); ok {
		parsed, valid := logging.ParseLevel(level)
		if !valid {
			p.invalid = append(p.invalid, Prefix+"LOG_LEVEL")
		}
		cfg.LogLevel = parsed
	}

	p.str("ADMIN_PASSWORD_HASH", &cfg.AdminPasswordHash)
	p.str("JWT_SECRET", &cfg.JWTSecret)
	p.positiveDuration("JWT_TTL", &cfg.JWTTTL)

	if list, ok := p.get("NOTIFIER"); ok {
		var notifiers []string
		for _, name := range strings.Split(list, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if !slices.Contains(knownNotifiers, name) {
				p.invalid = append(p.invalid, Prefix+"NOTIFIER")
				break
			}
			if !slices.Contains(notifiers, name) {
				notifiers = append(notifiers, name)
			}
		}
		cfg.Notifiers = notifiers
	}
	p.str("NOTIFY_TO", &cfg.NotifyTo)
	p.str("MAIL_FROM", &cfg.MailFrom)
	p.str("SMTP_ADDR", &cfg.SMTPAddr)
	p.str("SMTP_USERNAME", &cfg.SMTPUsername)
	p.str("SMTP_PASSWORD", &cfg.SMTPPassword)
	p.str("SENDGRID_API_KEY", &cfg.SendGridAPIKey)
	p.str("AMQP_URL", &cfg.AMQPURL)
	p.str("AMQP_QUEUE", &cfg.AMQPQueue)

	p.str("REDIS_ADDR", &cfg.RedisAddr)
	p.str("REDIS_PASSWORD", &cfg.RedisPassword)
	if value, ok := p.get("REDIS_DB"); ok {
		db, err := strconv.Atoi(value)
		if err != nil || db < 0 {
			p.invalid = append(p.invalid, Prefix+"REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}
	p.positiveInt("RATE_LIMIT_CAPACITY", &cfg.RateLimitCapacity)
	p.positiveDuration("RATE_LIMIT_REFILL_INTERVAL", &cfg.RateLimitRefillInterval)

	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(p.invalid, ", "))
	}
	return cfg, nil
}

// ValidateServe reports every value the HTTP server needs but Load leaves
// optional.
func (c Config) ValidateServe() error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, Prefix+name)
		}
	}

	require("ADMIN_PASSWORD_HASH", c.AdminPasswordHash)
	require("JWT_SECRET", c.JWTSecret)
	if slices.Contains(c.Notifiers, "smtp") {
		require("SMTP_ADDR", c.SMTPAddr)
	}
	if slices.Contains(c.Notifiers, "sendgrid") {
		require("SENDGRID_API_KEY", c.SendGridAPIKey)
	}
	if slices.Contains(c.Notifiers, "amqp") {
		require("AMQP_URL", c.AMQPURL)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

type parser struct {
	lookup  func(string) (string, bool)
	invalid []string
}

func (p *parser) get(name string) (string, bool) {
	value, ok := p.lookup(Prefix + name)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (p *parser) str(name string, dst *string) {
	if value, ok := p.get(name); ok {
		*dst = value
	}
}

func (p *parser) positiveInt(name string, dst *int) {
	value, ok := p.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		p.invalid = append(p.invalid, Prefix+name)
		return
	}
	*dst = n
}

func (p *parser) positiveDuration(name string, dst *time.Duration) {
	value, ok := p.get(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, Prefix+name)
		return
	}
	*dst = d
}
