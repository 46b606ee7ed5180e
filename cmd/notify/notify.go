// Package notify sends test emails and lists email templates.
package notify

import (
	"fmt"
	"io"
	"net/mail"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/notification"
)

// Command returns the notify command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Email transport utilities",
	}
	cmd.AddCommand(testEmailCommand(settings), templatesCommand())
	return cmd
}

func testEmailCommand(settings *conf.Settings) *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "test-email <address>",
		Short: "Send a test email through the configured SMTP transport",
		Long: `Send a test email through the configured SMTP transport.

Examples:
  debatetab notify test-email tab@example.org
  debatetab notify test-email --host tab.example.org tab@example.org`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := mail.ParseAddress(args[0])
			if err != nil {
				return fmt.Errorf("invalid email address %q: %w", args[0], err)
			}

			sender, err := notification.NewShoutrrrSender(&settings.Notification.Email)
			if err != nil {
				return err
			}

			if host == "" {
				host, _ = os.Hostname()
			}
			if err := notification.SendTestEmail(cmd.Context(), sender, host, addr.Address); err != nil {
				return fmt.Errorf("there was an error sending the test email: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "A test email has been sent to %s.\n", addr.Address)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Site name shown in the email body (defaults to the hostname)")
	return cmd
}

func templatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List email templates and their default subjects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeTemplates(cmd.OutOrStdout())
		},
	}
}

func writeTemplates(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tSCOPE\tSUBJECT PREFERENCE\tDEFAULT SUBJECT")
	scopes := []struct {
		name   string
		events []notification.EventType
	}{
		{"tournament", notification.TournamentEvents},
		{"round", notification.RoundEvents},
	}
	for _, scope := range scopes {
		for _, event := range scope.events {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", event, scope.name, event.SubjectPreference(), event.DefaultSubject())
		}
	}
	return tw.Flush()
}
