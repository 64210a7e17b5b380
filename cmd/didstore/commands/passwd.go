package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func passwdCmd() *cobra.Command {
	var newPassword string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Re-encrypt every secret under a new store password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if err := appCtx.Store.ChangePassword(passphrase, newPassword); err != nil {
				return err
			}
			fmt.Println("Password changed.")
			return nil
		},
	}
	cmd.Flags().StringVar(&newPassword, "new", "", "new store password")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}
