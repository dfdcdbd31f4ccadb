package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maildeck/maildeck/internal/api"
	"github.com/maildeck/maildeck/internal/config"
	"github.com/maildeck/maildeck/internal/identity"
	"github.com/maildeck/maildeck/internal/logging"
	"github.com/maildeck/maildeck/internal/session"
	"github.com/maildeck/maildeck/internal/store/sqlite"
	"github.com/maildeck/maildeck/internal/tui"
)

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string

	// jsonFlag enables JSON output for all commands.
	jsonFlag bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "maildeck",
		Short:   "Terminal Gmail client",
		Long:    "A terminal client for the Gmail bridge backend: connect accounts, read mail, and send.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if shell, _ := cmd.Flags().GetString("generate-completion"); shell != "" {
				switch shell {
				case "bash":
					return cmd.Root().GenBashCompletion(os.Stdout)
				case "zsh":
					return cmd.Root().GenZshCompletion(os.Stdout)
				case "fish":
					return cmd.Root().GenFishCompletion(os.Stdout, true)
				default:
					return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", shell)
				}
			}
			return runWorkspace(cmd)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("maildeck %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().String("generate-completion", "", "Generate shell completion (bash, zsh, fish)")
	root.Flags().MarkHidden("generate-completion")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.AddCommand(newLoginCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newWhoamiCmd())
	root.AddCommand(newAccountsCmd())
	root.AddCommand(newConnectCmd())
	root.AddCommand(newDisconnectCmd())
	root.AddCommand(newMessagesCmd())
	root.AddCommand(newSendCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// runWorkspace wires up the full stack and starts the TUI.
func runWorkspace(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	logger, closer, err := logging.Open(config.DataDir())
	if err != nil {
		return err
	}
	defer closer.Close()

	identities := newIdentity(cfg)
	guard := session.NewGuard(identities, db, cfg.ValidateInterval(), logger)

	// Session state changes flow into the TUI; a nil user shuts it down.
	events := make(chan *identity.User, 4)
	guard.OnChange(func(u *identity.User) {
		select {
		case events <- u:
		default:
		}
	})

	ctx := cmd.Context()
	if _, err := guard.Start(ctx); err != nil {
		return fmt.Errorf("failed to resolve session: %w", err)
	}
	defer guard.Stop()

	backend := api.NewClient(baseURL(cfg), identities)

	return tui.Run(tui.Deps{
		Backend:       backend,
		Sessions:      guard,
		Settings:      db,
		Logger:        logger,
		SessionEvents: events,
		MaxMessages:   cfg.UI.MaxMessages,
	})
}

// openDB creates the data directory and opens the settings database.
func openDB() (*sqlite.DB, error) {
	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "maildeck.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// loadConfig loads the application configuration from the config file.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newIdentity builds the identity client backed by the OS keyring.
func newIdentity(cfg *config.Config) *identity.TokenService {
	return identity.NewTokenService(cfg.Identity.TokenURL, cfg.Identity.ClientID, identity.NewKeyringSessionStore())
}

// baseURL resolves the backend address: config first, then the
// MAILDECK_SERVER environment variable.
func baseURL(cfg *config.Config) string {
	if cfg.Server.BaseURL != "" {
		return cfg.Server.BaseURL
	}
	if env := os.Getenv("MAILDECK_SERVER"); env != "" {
		return env
	}
	return "http://localhost:5000"
}

// newBackend builds an authenticated backend client for one-shot commands.
func newBackend() (*api.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return api.NewClient(baseURL(cfg), newIdentity(cfg)), cfg, nil
}
