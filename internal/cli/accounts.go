package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/maildeck/maildeck/internal/connect"
	"github.com/maildeck/maildeck/internal/store"
)

func newAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List connected Gmail accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := newBackend()
			if err != nil {
				return err
			}

			accounts, err := backend.ListAccounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONAccounts(accounts))
			}

			if len(accounts) == 0 {
				fmt.Println("No accounts connected. Run 'maildeck connect' to add one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tSTATUS")
			for _, a := range accounts {
				status := "connected"
				if !a.Connected() {
					status = "pending"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Email, a.Name, status)
			}
			return w.Flush()
		},
	}
}

func newConnectCmd() *cobra.Command {
	var noBrowser bool
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect a Gmail account via OAuth",
		Long: "Ask the backend for a Google consent URL, open it in the browser, " +
			"and wait for the account to finish connecting.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// Connecting needs an authenticated session on the backend.
			user, err := newIdentity(cfg).CurrentUser(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read session: %w", err)
			}
			if user == nil {
				return fmt.Errorf("not signed in; run 'maildeck login' first")
			}

			backend, _, err := newBackend()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			grant, err := backend.AuthURL(ctx)
			if err != nil {
				return fmt.Errorf("failed to get authorization URL: %w", err)
			}

			// Remember the provisional id right away; the workspace picks it
			// up even if this process exits before OAuth completes.
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.SetSetting(ctx, store.KeyActiveAccount, grant.AccountID); err != nil {
				return fmt.Errorf("failed to store account id: %w", err)
			}

			if noBrowser {
				fmt.Printf("Open this URL to authorize Gmail access:\n\n  %s\n\n", grant.URL)
			} else {
				fmt.Println("Opening browser for Gmail authorization...")
				if err := browser.OpenURL(grant.URL); err != nil {
					fmt.Printf("Could not open browser. Open this URL manually:\n\n  %s\n\n", grant.URL)
				}
			}

			fmt.Println("Waiting for authorization to complete (ctrl+c to stop waiting)...")
			events := connect.Watch(ctx, backend, grant.AccountID, connect.DefaultInterval, wait, nil)
			ev, ok := <-events
			if !ok {
				return fmt.Errorf("timed out waiting for Gmail authorization; run 'maildeck accounts' to check later")
			}

			if ev.AccountID != grant.AccountID {
				if err := db.SetSetting(ctx, store.KeyActiveAccount, ev.AccountID); err != nil {
					return fmt.Errorf("failed to store account id: %w", err)
				}
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "connect", AccountID: ev.AccountID})
			}

			fmt.Printf("Gmail account connected: %s\n", ev.AccountID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "print the consent URL instead of opening a browser")
	cmd.Flags().DurationVar(&wait, "wait", connect.DefaultTimeout, "how long to wait for authorization")
	return cmd
}

func newDisconnectCmd() *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:   "disconnect [account-id]",
		Short: "Disconnect a Gmail account",
		Long: "Tell the backend to drop the stored Gmail credentials for an account. " +
			"Defaults to the active account when no id is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := newBackend()
			if err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()

			accountID := ""
			if len(args) == 1 {
				accountID = args[0]
			} else {
				accountID, err = db.Setting(ctx, store.KeyActiveAccount)
				if err != nil {
					return fmt.Errorf("no account id given and no active account stored")
				}
			}

			if admin {
				err = backend.AdminDisconnect(ctx, accountID)
			} else {
				err = backend.Disconnect(ctx, accountID)
			}
			if err != nil {
				return fmt.Errorf("failed to disconnect: %w", err)
			}

			// Forget the active account if it was the one disconnected.
			if active, serr := db.Setting(ctx, store.KeyActiveAccount); serr == nil && active == accountID {
				if derr := db.DeleteSetting(ctx, store.KeyActiveAccount); derr != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to clear active account: %v\n", derr)
				}
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "disconnect", AccountID: accountID})
			}

			fmt.Printf("Account disconnected: %s\n", accountID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "disconnect any account regardless of owner (requires admin permission)")
	return cmd
}
