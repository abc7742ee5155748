package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-contact/app/entity"
	"github.com/vibast-solutions/ms-go-contact/app/repository"

	"github.com/spf13/cobra"
)

var (
	eventsLimit     int
	eventsOlderThan time.Duration
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect archived operator events",
	Long:  "Inspect and prune operator events stored in the MySQL operator_events table.",
}

var eventsRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent operator events",
	Run:   runEventsRecent,
}

var eventsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete operator events older than a cutoff",
	Run:   runEventsPrune,
}

// init registers events subcommands.
func init() {
	eventsRecentCmd.Flags().IntVar(&eventsLimit, "limit", 20, "number of events to list")
	eventsPruneCmd.Flags().DurationVar(&eventsOlderThan, "older-than", 30*24*time.Hour, "delete events older than this duration")
	eventsCmd.AddCommand(eventsRecentCmd, eventsPruneCmd)
	rootCmd.AddCommand(eventsCmd)
}

func openEventRepository(ctx context.Context) (*repository.OperatorEventRepository, func()) {
	cfg, logger := loadConfig()

	db, err := openMySQL(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if db == nil {
		logger.Fatal("MYSQL_DSN is required to inspect operator events")
	}
	return repository.NewOperatorEventRepository(db), func() { _ = db.Close() }
}

func runEventsRecent(cmd *cobra.Command, _ []string) {
	ctx := context.Background()
	repo, closeDB := openEventRepository(ctx)
	defer closeDB()

	events, err := repo.ListRecent(ctx, eventsLimit)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "list events: %v\n", err)
		return
	}
	printEvents(cmd.OutOrStdout(), events)
}

func runEventsPrune(cmd *cobra.Command, _ []string) {
	ctx := context.Background()
	repo, closeDB := openEventRepository(ctx)
	defer closeDB()

	deleted, err := repo.DeleteBefore(ctx, time.Now().Add(-eventsOlderThan))
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "prune events: %v\n", err)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d events\n", deleted)
}

func printEvents(w io.Writer, events []entity.OperatorEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	for _, ev := range events {
		keys := make([]string, 0, len(ev.Detail))
		for k := range ev.Detail {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+ev.Detail[k])
		}
		fmt.Fprintf(w, "%s  %s  %s\n", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Event, strings.Join(pairs, " "))
	}
}
