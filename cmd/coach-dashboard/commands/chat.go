package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/strrl/coach-dashboard/pkg/models"
)

// NewChatCommand creates the chat command
func NewChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <meetup-id> <message>...",
		Short: "Send one message in a meetup and print the transcript",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(false, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	meetups, err := a.repo.Meetups(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch meetups: %w", err)
	}
	meetup, ok := lo.Find(meetups, func(m models.Meetup) bool { return m.ID == args[0] })
	if !ok {
		return fmt.Errorf("meetup %s not found", args[0])
	}

	a.controller.Open(meetup)
	outcome, err := a.controller.Send(cmd.Context(), strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	printTranscript(cmd.OutOrStdout(), a.store.Messages())
	return outcome.Err
}

func printTranscript(out io.Writer, messages []models.Message) {
	for _, m := range messages {
		fmt.Fprintf(out, "[%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.Sender.Label(), m.Text)
	}
}
