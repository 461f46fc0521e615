package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/redis"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage gateway sessions",
}

var revokeTTL time.Duration

var sessionRevokeCmd = &cobra.Command{
	Use:   "revoke <jti>",
	Short: "Revoke a session by its token id",
	Long: `Revoke adds the session jti to the blacklist so the session is rejected
on its next request. The TTL should cover the token's remaining lifetime.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(true, false)
		if err != nil {
			return err
		}
		defer e.close()

		blacklist := redis.NewSessionBlacklist(e.redis, e.log)
		if err := blacklist.Revoke(cmd.Context(), args[0], revokeTTL); err != nil {
			return err
		}
		fmt.Printf("session %s revoked for %s\n", args[0], revokeTTL)
		return nil
	},
}

func init() {
	sessionRevokeCmd.Flags().DurationVar(&revokeTTL, "ttl", time.Hour, "how long the revocation is held")
	sessionCmd.AddCommand(sessionRevokeCmd)
	rootCmd.AddCommand(sessionCmd)
}
