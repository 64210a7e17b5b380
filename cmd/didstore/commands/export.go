package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"didstore/internal/didstore"
)

func exportCmd() *cobra.Command {
	var (
		out            string
		exportPassword string
	)
	write := func(export func() ([]byte, error)) error {
		if err := requirePassphrase(); err != nil {
			return err
		}
		data, err := export()
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o600); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", out)
		return nil
	}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a password-protected export of a DID, the identity or the store",
	}
	cmd.PersistentFlags().StringVarP(&out, "out", "o", "", "output file")
	cmd.PersistentFlags().StringVar(&exportPassword, "export-password", "", "password protecting the export")
	_ = cmd.MarkPersistentFlagRequired("out")
	_ = cmd.MarkPersistentFlagRequired("export-password")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "did <did>",
			Short: "Export one DID with its keys, credentials and metadata",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				did, err := parseDID(args[0])
				if err != nil {
					return err
				}
				return write(func() ([]byte, error) {
					return appCtx.Store.ExportDID(did, exportPassword, passphrase)
				})
			},
		},
		&cobra.Command{
			Use:   "identity",
			Short: "Export the identity root",
			RunE: func(cmd *cobra.Command, args []string) error {
				return write(func() ([]byte, error) {
					return appCtx.Store.ExportPrivateIdentity(exportPassword, passphrase)
				})
			},
		},
		&cobra.Command{
			Use:   "store",
			Short: "Export the identity root and every DID",
			RunE: func(cmd *cobra.Command, args []string) error {
				return write(func() ([]byte, error) {
					return appCtx.Store.ExportStore(exportPassword, passphrase)
				})
			},
		},
	)
	return cmd
}

func importCmd() *cobra.Command {
	var exportPassword string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Read an export produced by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			kind, _, err := didstore.OpenExport(data, exportPassword)
			if err != nil {
				return err
			}

			switch kind {
			case didstore.ExportDIDKind:
				did, err := appCtx.Store.ImportDID(data, exportPassword, passphrase)
				if err != nil {
					return err
				}
				fmt.Printf("Imported %s\n", did)
			case didstore.ExportIdentityKind:
				if err := appCtx.Store.ImportPrivateIdentity(data, exportPassword, passphrase); err != nil {
					return err
				}
				fmt.Println("Imported identity.")
			case didstore.ExportStoreKind:
				if err := appCtx.Store.ImportStore(data, exportPassword, passphrase); err != nil {
					return err
				}
				fmt.Println("Imported store.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&exportPassword, "export-password", "", "password protecting the export")
	_ = cmd.MarkFlagRequired("export-password")
	return cmd
}
