package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/redis"
	"github.com/montrose/hnwi-gateway/pkg/constants"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached payloads",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge <user-id>",
	Short: "Drop all cached payloads for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(true, false)
		if err != nil {
			return err
		}
		defer e.close()

		userID := args[0]
		cache := redis.NewCacheManager(e.redis, e.log)
		keys := []string{
			constants.CacheKeyDashboard + userID,
			constants.CacheKeyOpportunities + userID,
			constants.CacheKeyVaultAssets + userID,
		}
		for _, key := range keys {
			if err := cache.Delete(cmd.Context(), key); err != nil {
				return err
			}
		}
		fmt.Printf("purged %d cache entries for user %s\n", len(keys), userID)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
