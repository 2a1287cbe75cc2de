package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Beta Environment = "beta"
	Dev  Environment = "dev"
)

type ThicketConfig struct {
	Env      Environment
	Addr     string
	BaseUrl  string
	Hostname string // bare hostname used for GUID prefixes and synthesized URIs
	LogLevel zerolog.Level

	Postgres PostgresConfig
	Spool    SpoolConfig
	Policy   PolicyConfig

	// When set, content writes are mirrored onto the pre-split legacy item
	// columns so older readers keep working. Transitional only.
	LegacySchema bool
}

type PostgresConfig struct {
	User     string
	Password string
	Hostname string
	Port     int
	DbName   string
	LogLevel tracelog.LogLevel
	MinConn  int32
	MaxConn  int32
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type SpoolConfig struct {
	Dir           string
	RetryInterval time.Duration
}

type PolicyConfig struct {
	// When false, reactions and follows advance only "changed" on the parent
	// thread, not "commented".
	ActivitiesBumpThreads bool

	// Forces comments on a non-private forum-broadcast thread to be public.
	ForumCommentVisibilityFix bool

	// Re-render every body regardless of the cached hash.
	IgnoreRenderCache bool

	// Retention window applied to push/relay items when the user has not
	// configured one. Zero means keep everything.
	DefaultRetentionDays int
}

var Config = ThicketConfig{
	Env:      Dev,
	Addr:     "localhost:9010",
	BaseUrl:  "http://thicket.local",
	Hostname: "thicket.local",
	LogLevel: zerolog.DebugLevel,
	Postgres: PostgresConfig{
		User:     "thicket",
		Password: "password",
		Hostname: "localhost",
		Port:     5432,
		DbName:   "thicket",
		LogLevel: tracelog.LogLevelWarn,
		MinConn:  2,
		MaxConn:  10,
	},
	Spool: SpoolConfig{
		Dir:           "./spool",
		RetryInterval: 5 * time.Minute,
	},
	Policy: PolicyConfig{
		ActivitiesBumpThreads:     true,
		ForumCommentVisibilityFix: true,
	},
}

func init() {
	// A .env file is optional; plain environment variables work the same.
	_ = godotenv.Load()

	if v, ok := os.LookupEnv("THICKET_ENV"); ok {
		Config.Env = Environment(v)
	}
	if v, ok := os.LookupEnv("THICKET_ADDR"); ok {
		Config.Addr = v
	}
	if v, ok := os.LookupEnv("THICKET_BASE_URL"); ok {
		Config.BaseUrl = v
	}
	if v, ok := os.LookupEnv("THICKET_HOSTNAME"); ok {
		Config.Hostname = v
	}
	if v, ok := os.LookupEnv("THICKET_LOG_LEVEL"); ok {
		if level, err := zerolog.ParseLevel(v); err == nil {
			Config.LogLevel = level
		}
	}
	if v, ok := os.LookupEnv("THICKET_SPOOL_DIR"); ok {
		Config.Spool.Dir = v
	}

	if v, ok := os.LookupEnv("THICKET_PG_USER"); ok {
		Config.Postgres.User = v
	}
	if v, ok := os.LookupEnv("THICKET_PG_PASSWORD"); ok {
		Config.Postgres.Password = v
	}
	if v, ok := os.LookupEnv("THICKET_PG_HOST"); ok {
		Config.Postgres.Hostname = v
	}
	if v, ok := os.LookupEnv("THICKET_PG_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			Config.Postgres.Port = port
		}
	}
	if v, ok := os.LookupEnv("THICKET_PG_DBNAME"); ok {
		Config.Postgres.DbName = v
	}
}
