package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/strrl/coach-dashboard/internal/dashboard"
)

var recentLimit int

// NewShowCommand creates the show command
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [employee-id]",
		Short: "Show employees and meetups, or one employee's mood history",
		Long:  `Show prints the employee roster and every meetup. Given an employee ID it prints that employee's mood summary and recent emotions instead.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runShow,
	}
	cmd.Flags().IntVarP(&recentLimit, "limit", "n", 10, "Number of recent emotions to show")
	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(false, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		employees, err := a.repo.Employees(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch employees: %w", err)
		}
		table := newTable(out, []string{"ID", "Name", "Role", "Department", "Coaching since"})
		for _, e := range employees {
			table.Append([]string{e.ID, e.Name, e.Role, e.Department, e.CoachingSince})
		}
		table.Render()
		fmt.Fprintln(out)

		meetups, err := a.repo.Meetups(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch meetups: %w", err)
		}
		table = newTable(out, []string{"ID", "Employee", "Scheduled", "Duration", "Status", "Topics"})
		for _, m := range meetups {
			status := string(m.Status)
			if m.IsPending {
				status += " (pending)"
			}
			table.Append([]string{m.ID, m.EmployeeName, m.ScheduledFor, m.Duration, status, strings.Join(m.Topics, ", ")})
		}
		table.Render()
		return nil
	}

	employee, err := a.repo.Employee(ctx, args[0])
	if errors.Is(err, dashboard.ErrEmployeeNotFound) {
		return fmt.Errorf("employee %s not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to fetch employee: %w", err)
	}
	fmt.Fprintf(out, "%s (%s), %s\n\n", employee.Name, employee.ID, employee.Role)

	counts, err := a.repo.MoodSummary(ctx, employee.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch mood summary: %w", err)
	}
	table := newTable(out, []string{"Emotion", "Count", "Last seen"})
	for _, c := range counts {
		table.Append([]string{c.Emotion, strconv.Itoa(c.Count), c.LastSeen.Format("2006-01-02 15:04")})
	}
	table.Render()
	fmt.Fprintln(out)

	recent, err := a.repo.RecentEmotions(ctx, employee.ID, recentLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch recent emotions: %w", err)
	}
	table = newTable(out, []string{"When", "Emotion", "Reason"})
	for _, r := range recent {
		table.Append([]string{r.CreatedAt.Format("2006-01-02 15:04"), r.Emotion, r.Reason})
	}
	table.Render()
	return nil
}

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
