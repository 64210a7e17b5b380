package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"didstore/internal/services/lifecycle"
)

// publish <did>: create or update the DID on the ledger.
func publishCmd() *cobra.Command {
	var (
		key   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "publish <did>",
		Short: "Create or update a DID on the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			did, err := parseDID(args[0])
			if err != nil {
				return err
			}
			signKey, err := parseKey(key, did)
			if err != nil {
				return err
			}
			txid, err := appCtx.Lifecycle.PublishDID(cmd.Context(), did,
				lifecycle.PublishOptions{SignKey: signKey, Force: force}, passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Transaction: %s\n", txid)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "authentication key to sign with (default key if empty)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite the ledger even if the local copy is stale")
	return cmd
}

func resolveCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "resolve <did>",
		Short: "Fetch a DID's current document from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			did, err := parseDID(args[0])
			if err != nil {
				return err
			}
			doc, err := appCtx.Lifecycle.Resolve(cmd.Context(), did, force)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("%s is not published", did)
			}
			fmt.Println(doc)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "bypass the resolver cache")
	return cmd
}

// deactivate <did>: deactivate with the DID's own key, or with --controller
// through an authorization key.
func deactivateCmd() *cobra.Command {
	var (
		key        string
		controller string
	)
	cmd := &cobra.Command{
		Use:   "deactivate <did>",
		Short: "Deactivate a DID, directly or as its controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			did, err := parseDID(args[0])
			if err != nil {
				return err
			}

			var txid string
			if controller == "" {
				signKey, err := parseKey(key, did)
				if err != nil {
					return err
				}
				txid, err = appCtx.Lifecycle.DeactivateDID(cmd.Context(), did, signKey, passphrase)
				if err != nil {
					return err
				}
			} else {
				ctrl, err := parseDID(controller)
				if err != nil {
					return err
				}
				authKey, err := parseKey(key, ctrl)
				if err != nil {
					return err
				}
				txid, err = appCtx.Lifecycle.DeactivateDIDWithAuthorization(cmd.Context(), did, ctrl, authKey, passphrase)
				if err != nil {
					return err
				}
			}
			fmt.Printf("Transaction: %s\n", txid)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "signing key (relative keys resolve against the signer)")
	cmd.Flags().StringVar(&controller, "controller", "", "controller DID holding an authorization key")
	return cmd
}
