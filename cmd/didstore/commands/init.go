package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"didstore/internal/mnemonic"
)

func initCmd() *cobra.Command {
	var (
		words    string
		language string
		extra    string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Install the identity root, generating a mnemonic unless one is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			got, err := appCtx.Identity.Provision(language, words, extra, passphrase, force)
			if err != nil {
				return err
			}
			fmt.Println("Identity created.")
			if words == "" {
				fmt.Printf("Mnemonic: %s\n", got)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&words, "mnemonic", "", "existing mnemonic to restore")
	cmd.Flags().StringVar(&language, "language", mnemonic.English, "mnemonic word list")
	cmd.Flags().StringVar(&extra, "mnemonic-passphrase", "", "optional BIP39 passphrase")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing identity")
	return cmd
}

func mnemonicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mnemonic",
		Short: "Print the identity mnemonic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			words, err := appCtx.Store.ExportMnemonic(passphrase)
			if err != nil {
				return err
			}
			fmt.Println(words)
			return nil
		},
	}
}
