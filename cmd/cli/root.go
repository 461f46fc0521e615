// Package cli implements the gateway-admin command-line tool: session
// revocation, cache purging, and webhook journal maintenance.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/monitoring"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/gormdb"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/redis"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "gateway-admin",
	Short: "Administer the HNWI platform gateway",
	Long: `gateway-admin performs operational tasks against a running gateway's
stores: revoking sessions, purging cached payloads, and replaying journaled
webhooks that never reached the backend.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env bundles the shared dependencies admin commands need. Connections are
// opened lazily per command and must be released via close.
type env struct {
	cfg   *config.Config
	log   logger.Logger
	redis *redis.RedisConnection
	db    *gormdb.DBConnection
}

func newEnv(needRedis, needDB bool) (*env, error) {
	log, err := monitoring.NewZapLogger(&config.LogConfig{Level: "warn"})
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(log)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: log}
	if needRedis {
		if e.redis, err = redis.NewRedisConnection(&cfg.Redis, log); err != nil {
			return nil, err
		}
	}
	if needDB {
		if e.db, err = gormdb.NewDBConnection(&cfg.Database, log); err != nil {
			e.close()
			return nil, err
		}
	}
	return e, nil
}

func (e *env) close() {
	if e.redis != nil {
		e.redis.Close()
	}
	if e.db != nil {
		e.db.Close()
	}
}
