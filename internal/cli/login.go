package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maildeck/maildeck/internal/session"
)

func newLoginCmd() *cobra.Command {
	var refreshToken string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an identity refresh token",
		Long: "Exchange a refresh token from the identity provider for a session. " +
			"The session is stored in the OS keyring and revalidated in the background while the workspace runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			token := strings.TrimSpace(refreshToken)
			if token == "" {
				fmt.Fprint(os.Stderr, "Refresh token: ")
				reader := bufio.NewReader(os.Stdin)
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read refresh token: %w", err)
				}
				token = strings.TrimSpace(line)
			}
			if token == "" {
				return fmt.Errorf("a refresh token is required")
			}

			identities := newIdentity(cfg)
			user, err := identities.Establish(cmd.Context(), token)
			if err != nil {
				return fmt.Errorf("failed to sign in: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "login", Email: user.Email})
			}

			fmt.Printf("Signed in as %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "identity refresh token (prompted if omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear local state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			// Logout goes through the guard so durable state is cleared the
			// same way a forced logout clears it.
			guard := session.NewGuard(newIdentity(cfg), db, 0, nil)
			guard.Logout(cmd.Context())

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "logout"})
			}

			fmt.Println("Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			user, err := newIdentity(cfg).CurrentUser(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read session: %w", err)
			}

			if user == nil {
				if jsonFlag {
					return printJSON(jsonAction{OK: false, Action: "whoami"})
				}
				fmt.Println("Not signed in. Run 'maildeck login'.")
				return nil
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "whoami", Email: user.Email})
			}

			fmt.Printf("%s (%s)\n", user.Email, user.UID)
			return nil
		},
	}
}
