package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/strrl/coach-dashboard/internal/dashboard"
)

var (
	scheduleDate     string
	scheduleTime     string
	scheduleDuration int
	scheduleTopics   []string
)

// NewScheduleCommand creates the schedule command
func NewScheduleCommand() *cobra.Command {
	durations := strings.Join(lo.Map(dashboard.DurationOptions, func(d int, _ int) string {
		return fmt.Sprint(d)
	}), ", ")

	cmd := &cobra.Command{
		Use:   "schedule <employee-id>",
		Short: "Schedule a new meetup with an employee",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedule,
	}
	cmd.Flags().StringVar(&scheduleDate, "date", time.Now().Format(time.DateOnly), "Meetup date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&scheduleTime, "time", dashboard.DefaultScheduleTime, "Meetup start time (HH:MM)")
	cmd.Flags().IntVar(&scheduleDuration, "duration", dashboard.DefaultScheduleDuration, "Duration in minutes, one of "+durations)
	cmd.Flags().StringSliceVar(&scheduleTopics, "topic", nil, "Topic to discuss (repeatable)")
	return cmd
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := newApp(false, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	meetup, err := a.scheduler.Schedule(cmd.Context(), dashboard.ScheduleRequest{
		EmployeeID: args[0],
		Date:       scheduleDate,
		Time:       scheduleTime,
		Duration:   scheduleDuration,
		Topics:     scheduleTopics,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Meetup with %s scheduled for %s (%s), id %s\n",
		meetup.EmployeeName, meetup.ScheduledFor, meetup.Duration, meetup.ID)
	return nil
}
