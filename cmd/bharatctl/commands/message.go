package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// readInput returns args joined by spaces, or all of stdin when args is empty
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) > 0 {
		return []byte(strings.Join(args, " ")), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return b, nil
}

// encrypt --to <uid,...> [message]: print an encrypted payload as JSON.
func encryptCmd(c *cli) *cobra.Command {
	var to []string

	cmd := &cobra.Command{
		Use:   "encrypt [message]",
		Short: "Encrypt a message for the given participants (reads stdin without an argument)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			app, err := c.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			uid, err := app.CurrentUser()
			if err != nil {
				return err
			}

			payload, err := app.Messaging.EncryptForParticipants(cmd.Context(), string(text), to, uid)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		},
	}
	cmd.Flags().StringSliceVar(&to, "to", nil, "participant user ids (the sender is always included)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// decrypt [payload-json]: print the plaintext of a payload addressed to us.
func decryptCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt [payload-json]",
		Short: "Decrypt a JSON payload (reads stdin without an argument)",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			app, err := c.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			uid, err := app.CurrentUser()
			if err != nil {
				return err
			}

			text, err := app.Messaging.DecryptRaw(cmd.Context(), raw, uid)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
