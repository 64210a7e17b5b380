package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"didstore/internal/app"
	"didstore/internal/domain"
)

var (
	home       string
	driver     string
	ledgerPath string
	logLevel   string
	passphrase string
	appCtx     *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:          "didstore",
		Short:        "Local encrypted DID identity store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.DefaultConfig()
			if err := cfg.LoadFromEnv(); err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("home") {
				cfg.Home = home
			}
			if flags.Changed("driver") {
				cfg.Driver = driver
			}
			if flags.Changed("ledger") {
				cfg.LedgerPath = ledgerPath
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			w, err := app.NewWire(cfg)
			if err != nil {
				return err
			}
			appCtx = w
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return appCtx.Close()
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "store dir (default ~/.didstore)")
	root.PersistentFlags().StringVar(&driver, "driver", app.DriverFile, "storage driver: file or leveldb")
	root.PersistentFlags().StringVar(&ledgerPath, "ledger", "", "ledger state file (default <home>/ledger.json)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "store password protecting private keys")

	root.AddCommand(
		initCmd(), mnemonicCmd(), newCmd(), fingerprintCmd(),
		listCmd(), showCmd(), deleteCmd(),
		publishCmd(), resolveCmd(), deactivateCmd(),
		passwdCmd(), exportCmd(), importCmd(),
		credentialsCmd(), issueCmd(),
		presentCmd(), verifyPresentationCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return root.ExecuteContext(ctx)
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}

func parseDID(s string) (domain.DID, error) {
	return domain.ParseDID(s)
}

// parseKey accepts an absolute DID URL or a "#fragment" relative to did.
// An empty s yields nil.
func parseKey(s string, did domain.DID) (*domain.DIDURL, error) {
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "#") && !strings.HasPrefix(s, "did:") {
		s = "#" + s
	}
	u, err := domain.ParseDIDURL(s, did)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
