package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"didstore/internal/domain"
)

func newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new [alias]",
		Short: "Derive a new DID from the identity root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			alias := ""
			if len(args) == 1 {
				alias = args[0]
			}
			doc, fp, err := appCtx.Identity.CreateDID(alias, passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("DID: %s\nFingerprint: %s\n", doc.Subject(), fp)
			return nil
		},
	}
}

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <did>",
		Short: "Print the fingerprint of a DID's default key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			did, err := parseDID(args[0])
			if err != nil {
				return err
			}
			fp, err := appCtx.Identity.FingerprintDID(did)
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint: %s\n", fp)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the DIDs in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := domain.ParseListFilter(filter)
			if err != nil {
				return err
			}
			entries, err := appCtx.Store.ListDIDs(f)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s\t%s\n", e.DID, e.Alias)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "all, private or public")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <did>",
		Short: "Print a stored document and its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			did, err := parseDID(args[0])
			if err != nil {
				return err
			}
			doc, err := appCtx.Store.LoadDID(did)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("%s is not in the store", did)
			}
			meta, err := appCtx.Store.LoadDIDMeta(did)
			if err != nil {
				return err
			}
			fmt.Println(doc)
			if meta.Alias != "" {
				fmt.Printf("Alias: %s\n", meta.Alias)
			}
			if meta.TransactionID != "" {
				fmt.Printf("Transaction: %s\n", meta.TransactionID)
			}
			if meta.Deactivated {
				fmt.Println("Deactivated")
			}
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <did>",
		Short: "Remove a DID with its keys and credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			did, err := parseDID(args[0])
			if err != nil {
				return err
			}
			ok, err := appCtx.Store.DeleteDID(did)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s is not in the store", did)
			}
			fmt.Println("deleted")
			return nil
		},
	}
}
