package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/strrl/coach-dashboard/internal/chat"
	"github.com/strrl/coach-dashboard/internal/tui"
	"github.com/strrl/coach-dashboard/pkg/models"
)

var debugMode bool

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "coach-dashboard",
		Short:        "Run coaching meetups from the terminal",
		Long:         `coach-dashboard is a TUI for coaches: browse upcoming meetups, review employee moods and hold the meetup conversation by text or voice.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Run in debug mode (list meetups without TUI)")
	rootCmd.AddCommand(NewShowCommand())
	rootCmd.AddCommand(NewChatCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewScheduleCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	if debugMode {
		return runDebugMode(cmd)
	}

	notifier := chat.NewChannelNotifier(16)
	a, err := newApp(true, notifier)
	if err != nil {
		return err
	}
	defer a.Close()

	a.log.Info("starting dashboard", "chat_url", a.cfg.ChatURL, "data_dir", a.cfg.DataDir, "speech", a.controller.SpeechSupported())
	return tui.Run(tui.Options{
		Controller:    a.controller,
		Board:         a.board,
		Source:        a.repo,
		Loader:        a.loader,
		Scheduler:     a.scheduler,
		Notifications: notifier.C(),
		NotifyTTL:     a.cfg.NotifyTTL,
		ArchiveDelay:  a.cfg.ArchiveDelay,
		Log:           a.log.With("component", "tui"),
	})
}

func runDebugMode(cmd *cobra.Command) error {
	a, err := newApp(false, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	meetups, err := a.repo.Meetups(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch meetups: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Debug Mode: Meetups ===")
	if len(meetups) == 0 {
		fmt.Fprintln(out, "No meetups found")
		return nil
	}
	for i, m := range meetups {
		printMeetup(out, i+1, m)
		if i == 0 {
			printMoodSample(cmd.Context(), out, a, m.EmployeeID)
		}
	}
	return nil
}

func printMeetup(out io.Writer, n int, m models.Meetup) {
	fmt.Fprintf(out, "\n%d. Meetup: %s\n", n, m.ID)
	fmt.Fprintf(out, "   Employee: %s (%s)\n", m.EmployeeName, m.EmployeeID)
	fmt.Fprintf(out, "   Scheduled: %s %s\n", m.ScheduledFor, m.Duration)
	fmt.Fprintf(out, "   Status: %s (pending: %t)\n", m.Status, m.IsPending)
	if len(m.Topics) > 0 {
		fmt.Fprintf(out, "   Topics: %s\n", strings.Join(m.Topics, ", "))
	}
}

func printMoodSample(ctx context.Context, out io.Writer, a *app, employeeID string) {
	counts, err := a.repo.MoodSummary(ctx, employeeID)
	if err != nil {
		fmt.Fprintf(out, "   Error loading moods: %v\n", err)
		return
	}
	fmt.Fprintln(out, "   Mood summary:")
	for _, c := range counts {
		fmt.Fprintf(out, "   - %s x%d (last %s)\n", c.Emotion, c.Count, c.LastSeen.Format("2006-01-02"))
	}
}
