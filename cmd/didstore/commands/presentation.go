package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"didstore/internal/credential"
	"didstore/internal/presentation"
)

// present <did> <fragment>...: sign the named stored credentials for a
// verifier's nonce and realm.
func presentCmd() *cobra.Command {
	var nonce, realm, key string
	cmd := &cobra.Command{
		Use:   "present <did> <fragment>...",
		Short: "Create a signed presentation of stored credentials",
		Args:  cobra.MinimumNArgs(2),
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
			doc, err := appCtx.Store.LoadDID(did)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("%s is not in the store", did)
			}

			creds := make([]*credential.Credential, 0, len(args)-1)
			for _, fragment := range args[1:] {
				vc, err := appCtx.Store.LoadCredential(did, fragment)
				if err != nil {
					return err
				}
				if vc == nil {
					return fmt.Errorf("no credential %s#%s", did, fragment)
				}
				creds = append(creds, vc)
			}

			vp, err := presentation.Create(doc, signKey, creds, nonce, realm, appCtx.Store, passphrase)
			if err != nil {
				return err
			}
			fmt.Println(vp)
			return nil
		},
	}
	cmd.Flags().StringVar(&nonce, "nonce", "", "verifier nonce")
	cmd.Flags().StringVar(&realm, "realm", "", "verifier realm")
	cmd.Flags().StringVar(&key, "key", "", "authentication key to sign with (default key if empty)")
	_ = cmd.MarkFlagRequired("nonce")
	_ = cmd.MarkFlagRequired("realm")
	return cmd
}

func verifyPresentationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-presentation <file>",
		Short: "Check a presentation against documents in the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			vp, err := presentation.Parse(data)
			if err != nil {
				return err
			}
			if err := vp.Verify(appCtx.Store); err != nil {
				return err
			}
			fmt.Printf("valid presentation by %s (%d credentials)\n", vp.Holder(), len(vp.Credentials()))
			return nil
		},
	}
}
