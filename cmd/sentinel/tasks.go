package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"zoi/sentinel/pkg/cli"
	"zoi/sentinel/pkg/compliance"
	"zoi/sentinel/pkg/research/storage"
)

var tasksFlags struct {
	key    string
	status string
	since  time.Duration
	limit  int
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List recorded research tasks",
	Long: `List research task records from the task store, newest first.

The memory store only holds tasks of the current process, so this command is
useful with tasks.backend set to sqlite.

Examples:
  sentinel tasks --limit 20
  sentinel tasks --key acai --status failed
  sentinel tasks --since 24h -o json`,
	Args: cobra.NoArgs,
	RunE: runTasks,
}

func init() {
	rootCmd.AddCommand(tasksCmd)

	tasksCmd.Flags().StringVar(&tasksFlags.key, "key", "", "filter by product (normalized to its key)")
	tasksCmd.Flags().StringVar(&tasksFlags.status, "status", "", "filter by terminal status")
	tasksCmd.Flags().DurationVar(&tasksFlags.since, "since", 0, "only tasks started within this window")
	tasksCmd.Flags().IntVarP(&tasksFlags.limit, "limit", "n", 50, "maximum number of records")
}

func runTasks(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := printer(cmd)
	if err != nil {
		return err
	}

	store, err := openTaskStore(cfg.Tasks)
	if err != nil {
		return cli.NewCommandError("tasks", err)
	}
	defer store.Close()

	q := &storage.Query{
		Status: tasksFlags.status,
		Limit:  tasksFlags.limit,
	}
	if tasksFlags.key != "" {
		q.Key = compliance.Slugify(tasksFlags.key)
	}
	if tasksFlags.since > 0 {
		q.Since = time.Now().Add(-tasksFlags.since)
	}

	records, err := store.Query(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("tasks", err)
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID,
			r.Key,
			r.Backend,
			r.Status,
			r.Reason,
			strconv.Itoa(r.Polls),
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	return p.Table(records, []string{"ID", "KEY", "BACKEND", "STATUS", "REASON", "POLLS", "STARTED", "DURATION"}, rows)
}
