package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bharatconnect/internal/domain"
)

// login <user-id>: sign this device in and make sure it has key material.
func loginCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "login <user-id>",
		Short: "Sign in on this device and set up its private key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := strings.TrimSpace(args[0])
			if uid == "" {
				return fmt.Errorf("user id is required")
			}
			app, err := c.connect(cmd.Context(), false)
			if err != nil {
				return err
			}

			action, err := app.Lifecycle.EnsureLocalKeyMaterial(cmd.Context(), uid)
			if err != nil {
				return err
			}
			if err := app.Local.SetCurrentUser(uid); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "logged in as %s\n", uid)
			switch action {
			case domain.LifecycleDeferred:
				fmt.Fprintln(out, "no key vault yet, run: bharatctl onboard")
			case domain.LifecycleSessionKeyGenerated:
				fmt.Fprintln(out, "generated a new key pair for this device; older messages need a backup import")
			case domain.LifecycleInconsistent:
				fmt.Fprintln(out, "warning: this device has a private key but the account has no key vault")
			}
			return nil
		},
	}
}

// onboard: create the first key pair and the key vault.
func onboardCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Generate the account's first key pair and create its key vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			uid, err := app.CurrentUser()
			if err != nil {
				return err
			}

			vault, err := app.Lifecycle.ProvisionInitialKeyPair(cmd.Context(), uid)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "key vault created, active key %s\n", vault.ActiveKeyID)
			return nil
		},
	}
}

// logout: remove this device's private key and sign out.
func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete this device's private key and sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			uid, err := app.CurrentUser()
			if err != nil {
				return err
			}

			if err := app.Lifecycle.ClearLocalKeyMaterial(uid); err != nil {
				return err
			}
			if err := app.Local.ClearCurrentUser(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged out %s\n", uid)
			return nil
		},
	}
}

func whoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the account signed in on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			uid, err := app.CurrentUser()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), uid)
			return nil
		},
	}
}
