package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"didstore/internal/issuer"
)

func credentialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "credentials <did>",
		Short: "List a DID's credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			did, err := parseDID(args[0])
			if err != nil {
				return err
			}
			entries, err := appCtx.Store.ListCredentials(did)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s\t%s\n", e.ID, e.Alias)
			}
			return nil
		},
	}
}

// issue <issuer> <owner>: sign a credential about owner with the issuer's
// key. The credential is stored when the owner is in the store.
func issueCmd() *cobra.Command {
	var (
		fragment string
		types    []string
		props    []string
		expires  string
		key      string
		alias    string
	)
	cmd := &cobra.Command{
		Use:   "issue <issuer-did> <owner-did>",
		Short: "Issue a credential and store it with its owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			issuerDID, err := parseDID(args[0])
			if err != nil {
				return err
			}
			owner, err := parseDID(args[1])
			if err != nil {
				return err
			}
			signKey, err := parseKey(key, issuerDID)
			if err != nil {
				return err
			}
			properties := make(map[string]any, len(props))
			for _, p := range props {
				k, v, ok := strings.Cut(p, "=")
				if !ok || k == "" {
					return fmt.Errorf("property %q is not name=value", p)
				}
				properties[k] = v
			}
			var until time.Time
			if expires != "" {
				if until, err = time.Parse(time.DateOnly, expires); err != nil {
					return err
				}
			}

			doc, err := appCtx.Store.LoadDID(issuerDID)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("%s is not in the store", issuerDID)
			}
			iss, err := issuer.New(doc, signKey, appCtx.Store)
			if err != nil {
				return err
			}
			vc, err := iss.Issue(owner, fragment, types, properties, until, passphrase)
			if err != nil {
				return err
			}

			ok, err := appCtx.Store.ContainsDID(owner)
			if err != nil {
				return err
			}
			if ok {
				if err := appCtx.Store.StoreCredential(vc, alias); err != nil {
					return err
				}
			}
			fmt.Println(vc)
			return nil
		},
	}
	cmd.Flags().StringVar(&fragment, "fragment", "", "credential id fragment")
	cmd.Flags().StringSliceVar(&types, "type", nil, "credential type (repeatable)")
	cmd.Flags().StringArrayVar(&props, "prop", nil, "subject property name=value (repeatable)")
	cmd.Flags().StringVar(&expires, "expires", "", "expiry date YYYY-MM-DD (default issuer expiry)")
	cmd.Flags().StringVar(&key, "key", "", "issuer key to sign with (default key if empty)")
	cmd.Flags().StringVar(&alias, "alias", "", "local alias of the stored credential")
	_ = cmd.MarkFlagRequired("fragment")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
