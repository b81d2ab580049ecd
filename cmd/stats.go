package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/innerglow/internal/calendar"
	"github.com/sadopc/innerglow/internal/emotion"
	"github.com/sadopc/innerglow/internal/stats"
)

func statsCommand(e *env) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print streaks and the emotion distribution of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := e.userByEmail(user)
			if err != nil {
				return err
			}
			snap, err := e.store.Snapshot(context.Background(), u.ID)
			if err != nil {
				return err
			}

			st := stats.FromRecords(snap.Text, snap.Voice)
			current := stats.CurrentStreak(stats.Dates(snap.Text, snap.Voice), calendar.FromTime(time.Now()))
			agg := stats.Aggregate(snap.Text, snap.Voice)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s <%s>\n\n", u.DisplayName(), u.Email)
			fmt.Fprintf(w, "  %-16s %d\n", "Total entries", st.TotalEntries)
			fmt.Fprintf(w, "  %-16s %d\n", "Active days", st.ActiveDays)
			fmt.Fprintf(w, "  %-16s %d\n", "Longest streak", st.LongestStreak)
			fmt.Fprintf(w, "  %-16s %d\n", "Current streak", current)

			if len(agg.Distribution) == 0 {
				return nil
			}
			fmt.Fprintln(w)
			for _, s := range agg.Distribution {
				emo, _ := emotion.Lookup(s.Emotion)
				bar := strings.Repeat("█", max(1, s.Percent/5))
				fmt.Fprintf(w, "  %s %-10s %3d%% %s (%d)\n", emo.Emoji, emotion.Title(s.Emotion), s.Percent, bar, s.Count)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Email of the account")
	return cmd
}
