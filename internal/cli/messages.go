package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/maildeck/maildeck/internal/api"
	"github.com/maildeck/maildeck/internal/domain"
	"github.com/maildeck/maildeck/internal/store"
)

func newMessagesCmd() *cobra.Command {
	var accountFlag string
	var maxFlag int

	cmd := &cobra.Command{
		Use:   "messages",
		Short: "List recent messages",
		Long:  "List recent message summaries for a connected Gmail account, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := newBackend()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			accountID, err := resolveAccountID(cmd, accountFlag)
			if err != nil {
				return err
			}

			messages, err := backend.ListMessages(ctx, accountID, maxFlag)
			if err != nil {
				return fmt.Errorf("failed to list messages: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONMessages(messages))
			}

			if len(messages) == 0 {
				fmt.Println("No messages found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FROM\tSUBJECT\tDATE\tID")
			for _, m := range messages {
				from := domain.SenderName(m.From())
				if len(from) > 30 {
					from = from[:27] + "..."
				}
				subject := m.Subject()
				if subject == "" {
					subject = "(no subject)"
				}
				if len(subject) > 50 {
					subject = subject[:47] + "..."
				}
				date := ""
				if t := m.Date(); !t.IsZero() {
					date = t.Format("Jan 2, 2006")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", from, subject, date, m.ID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID (defaults to the stored active account)")
	cmd.Flags().IntVar(&maxFlag, "max", api.DefaultMaxResults, "max messages to fetch (1-100)")
	return cmd
}

func newSendCmd() *cobra.Command {
	var to, subject, body string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an email",
		Long:  "Send an email through the connected Gmail account. The body is read from stdin when --body is omitted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := newBackend()
			if err != nil {
				return err
			}

			if body == "" {
				data, err := io.ReadAll(bufio.NewReader(os.Stdin))
				if err != nil {
					return fmt.Errorf("failed to read body from stdin: %w", err)
				}
				body = strings.TrimRight(string(data), "\n")
			}

			draft := domain.Draft{To: to, Subject: subject, Body: body}
			if err := draft.Validate(); err != nil {
				return err
			}

			id, err := backend.Send(cmd.Context(), draft)
			if err != nil {
				return fmt.Errorf("failed to send: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "send", MessageID: id})
			}

			fmt.Printf("Sent. Message ID: %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient address")
	cmd.Flags().StringVar(&subject, "subject", "", "subject line")
	cmd.Flags().StringVar(&body, "body", "", "message body (stdin if omitted)")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("subject")
	return cmd
}

// resolveAccountID picks the account to operate on: the explicit flag, then
// the stored active account, then the first connected account reported by
// the backend.
func resolveAccountID(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}

	ctx := cmd.Context()

	db, err := openDB()
	if err != nil {
		return "", err
	}
	defer db.Close()

	if id, err := db.Setting(ctx, store.KeyActiveAccount); err == nil && id != "" {
		return id, nil
	}

	backend, _, err := newBackend()
	if err != nil {
		return "", err
	}
	accounts, err := backend.ListAccounts(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list accounts: %w", err)
	}
	for _, a := range accounts {
		if a.Connected() {
			return a.ID, nil
		}
	}
	return "", fmt.Errorf("no connected account; run 'maildeck connect' first")
}
