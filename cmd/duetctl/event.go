package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duetapp/duet"
	"github.com/duetapp/duet/internal/calendar"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Manage calendar events",
	}
	cmd.AddCommand(newEventAddCmd(), newEventListCmd(), newEventRmCmd(), newEventMarksCmd())
	return cmd
}

func newEventAddCmd() *cobra.Command {
	var (
		in                 duet.EventInput
		workspaceID        string
		startDate, endDate string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a calendar event",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.StartDate, err = parseDate("start", startDate); err != nil {
				return err
			}
			if in.EndDate, err = parseDate("end", endDate); err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				if in.WorkspaceID, err = currentWorkspace(a, workspaceID); err != nil {
					return err
				}
				ev, err := a.Calendar.Add(in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Event added: %s - %s\n", ev.ID, ev.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "Workspace ID (default current)")
	cmd.Flags().StringVar(&in.Title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description (optional)")
	cmd.Flags().StringVar(&startDate, "start", "", "First day YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&endDate, "end", "", "Last day YYYY-MM-DD (default start)")
	cmd.Flags().StringVar(&in.StartTime, "start-time", "", "Start time HH:MM")
	cmd.Flags().StringVar(&in.EndTime, "end-time", "", "End time HH:MM")
	cmd.Flags().BoolVar(&in.IsAllDay, "all-day", false, "All-day event")
	cmd.Flags().StringVar(&in.Color, "color", "", "Hex colour, e.g. #4A90E2")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

func newEventListCmd() *cobra.Command {
	var workspaceID, date string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events of a workspace, optionally on one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate("date", date)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				wsID, err := currentWorkspace(a, workspaceID)
				if err != nil {
					return err
				}
				events := calendar.ForWorkspace(a.Calendar.Get(), wsID)
				if !day.IsZero() {
					events = calendar.OnDate(a.Calendar.Get(), wsID, day)
				}
				for _, ev := range events {
					printEvent(cmd.OutOrStdout(), ev)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "Workspace ID (default current)")
	cmd.Flags().StringVar(&date, "date", "", "Only events covering YYYY-MM-DD")

	return cmd
}

func printEvent(w io.Writer, ev duet.Event) {
	when := ev.StartDate.Format(dateLayout)
	if !ev.EndDate.Equal(ev.StartDate) {
		when += ".." + ev.EndDate.Format(dateLayout)
	}
	if ev.IsAllDay {
		when += " all day"
	} else if ev.StartTime != "" {
		when += " " + ev.StartTime
		if ev.EndTime != "" {
			when += "-" + ev.EndTime
		}
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ev.ID, when, ev.Color, ev.Title)
}

func newEventRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <event-id>",
		Short: "Delete a calendar event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				if !a.Calendar.Remove(args[0]) {
					return fmt.Errorf("no event %s", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Event removed: %s\n", args[0])
				return nil
			})
		},
	}
}

func newEventMarksCmd() *cobra.Command {
	var workspaceID, from, to string

	cmd := &cobra.Command{
		Use:   "marks",
		Short: "Print the calendar bands for each marked day in a range",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDate("from", from)
			if err != nil {
				return err
			}
			end, err := parseDate("to", to)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				wsID, err := currentWorkspace(a, workspaceID)
				if err != nil {
					return err
				}
				marks := calendar.MarkedDates(calendar.ForWorkspace(a.Calendar.Get(), wsID), start, end)
				days := make([]string, 0, len(marks))
				for day := range marks {
					days = append(days, day)
				}
				sort.Strings(days)
				out := cmd.OutOrStdout()
				for _, day := range days {
					bands := make([]string, 0, len(marks[day].Periods))
					for _, p := range marks[day].Periods {
						edge := ""
						if p.Starting {
							edge += "["
						}
						if p.Ending {
							edge += "]"
						}
						bands = append(bands, p.Color+edge)
					}
					fmt.Fprintf(out, "%s\t%s\n", day, strings.Join(bands, " "))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "Workspace ID (default current)")
	cmd.Flags().StringVar(&from, "from", "", "First day YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&to, "to", "", "Last day YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
