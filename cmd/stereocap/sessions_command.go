package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"stereocap/internal/config"
	"stereocap/internal/sessions"
)

func newSessionsCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded capture sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := sessions.Open(cfg.Sessions.Dir)
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			defer store.Close()

			listed, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(listed) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}
			fmt.Fprintln(out, sessionsTable(listed))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to show (0 for all)")
	return cmd
}

// sessionsTable renders recorded bursts most recent first. The numeric
// columns are right-aligned so frame counts and exposures line up.
func sessionsTable(listed []*sessions.Session) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Resolution", "Exposure (us)", "Frames", "Started", "Duration", "Reason"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	for _, session := range listed {
		tw.AppendRow(table.Row{
			shortID(session.ID),
			session.Resolution,
			session.ExposureUS,
			session.Frames,
			session.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatDuration(session),
			sessionReason(session),
		})
	}
	return tw.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(session *sessions.Session) string {
	if session.EndedAt == nil {
		return "-"
	}
	return session.EndedAt.Sub(session.StartedAt).Round(time.Second).String()
}

func sessionReason(session *sessions.Session) string {
	if session.EndedAt == nil {
		return "running"
	}
	return session.EndReason
}
