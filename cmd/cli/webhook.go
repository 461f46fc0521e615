package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appservice "github.com/montrose/hnwi-gateway/internal/application/service"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/events"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/monitoring"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/gormdb"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/redis"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/secrets"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/upstream"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage the webhook journal",
}

var replayLimit int

var webhookPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List journaled events that never reached the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(false, true)
		if err != nil {
			return err
		}
		defer e.close()

		repo := gormdb.NewWebhookEventRepository(e.db, e.log)
		pending, err := repo.ListPending(cmd.Context(), replayLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EVENT ID\tPROVIDER\tTYPE\tSTATUS\tRECEIVED")
		for _, ev := range pending {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				ev.EventID, ev.Provider, ev.EventType, ev.ForwardStatus, ev.ReceivedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var webhookReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-forward journaled events to the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(true, true)
		if err != nil {
			return err
		}
		defer e.close()

		metrics := monitoring.NewMetrics()
		backend, err := upstream.NewClient(&e.cfg.Upstream, metrics, e.log)
		if err != nil {
			return err
		}
		secretProvider, err := secrets.NewProvider(e.cfg, e.log)
		if err != nil {
			return err
		}

		svc := appservice.NewWebhookAppService(
			backend,
			secretProvider,
			redis.NewCacheManager(e.redis, e.log),
			gormdb.NewWebhookEventRepository(e.db, e.log),
			events.NewNoopProducer(),
			metrics,
			e.log,
		)

		forwarded, err := svc.ReplayPending(cmd.Context(), replayLimit)
		if err != nil {
			return err
		}
		fmt.Printf("forwarded %d events\n", forwarded)
		return nil
	},
}

func init() {
	webhookCmd.PersistentFlags().IntVar(&replayLimit, "limit", 100, "maximum events to process")
	webhookCmd.AddCommand(webhookPendingCmd)
	webhookCmd.AddCommand(webhookReplayCmd)
	rootCmd.AddCommand(webhookCmd)
}
