package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bharatconnect/internal/domain"
	"bharatconnect/internal/service/backup"
	"bharatconnect/pkg/passphrase"
)

func backupCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Passphrase-encrypted backups of keys and chats",
	}
	cmd.AddCommand(backupExportCmd(c), backupImportCmd(c), backupListCmd(c))
	return cmd
}

func passphraseFlag(cmd *cobra.Command, pass *string) {
	cmd.Flags().StringVarP(pass, "passphrase", "p", os.Getenv("BHARAT_BACKUP_PASSPHRASE"),
		"backup passphrase (or BHARAT_BACKUP_PASSPHRASE)")
}

// backup export: encrypt the private key and/or a chats file.
func backupExportCmd(c *cli) *cobra.Command {
	var (
		pass       string
		includeKey bool
		chatsPath  string
		outPath    string
		upload     bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an encrypted backup package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var chats json.RawMessage
			if chatsPath != "" {
				b, err := os.ReadFile(filepath.Clean(chatsPath))
				if err != nil {
					return fmt.Errorf("failed to read chats file: %w", err)
				}
				chats = b
			}

			app, err := c.connect(cmd.Context(), upload)
			if err != nil {
				return err
			}
			uid, err := app.CurrentUser()
			if err != nil {
				return err
			}

			pkg, err := app.Backup.ExportBundle(cmd.Context(), uid, chats, includeKey, pass)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "passphrase strength: %s\n", passphrase.Rate(pass))

			if upload {
				name, err := app.Backup.Upload(cmd.Context(), uid, pkg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", name)
				return nil
			}

			data, err := json.MarshalIndent(pkg, "", "  ")
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(outPath, data, 0o600); err != nil {
				return fmt.Errorf("failed to write backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}
	passphraseFlag(cmd, &pass)
	cmd.Flags().BoolVar(&includeKey, "include-key", false, "include this device's private key")
	cmd.Flags().StringVar(&chatsPath, "chats", "", "JSON file with chats to include")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&upload, "upload", false, "store the package in cold storage instead")
	return cmd
}

// backup import: decrypt a package and restore its private key.
func backupImportCmd(c *cli) *cobra.Command {
	var (
		pass      string
		inPath    string
		name      string
		chatsPath string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore an encrypted backup package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (inPath == "") == (name == "") {
				return fmt.Errorf("exactly one of --in or --name is required")
			}

			app, err := c.connect(cmd.Context(), name != "")
			if err != nil {
				return err
			}
			uid, err := app.CurrentUser()
			if err != nil {
				return err
			}

			var pkg *domain.BackupPackage
			if name != "" {
				pkg, err = app.Backup.Download(cmd.Context(), uid, name)
			} else {
				pkg, err = readPackage(inPath)
			}
			if err != nil {
				return err
			}

			bundle, err := app.Backup.RestoreBundle(cmd.Context(), uid, pkg, pass)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if bundle.PrivateKey != "" {
				fmt.Fprintln(out, "private key restored")
			}
			if len(bundle.Chats) > 0 {
				if chatsPath == "" {
					fmt.Fprintln(out, string(bundle.Chats))
				} else if err := os.WriteFile(chatsPath, bundle.Chats, 0o600); err != nil {
					return fmt.Errorf("failed to write chats: %w", err)
				}
			}
			return nil
		},
	}
	passphraseFlag(cmd, &pass)
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "backup package file")
	cmd.Flags().StringVar(&name, "name", "", "backup object name in cold storage")
	cmd.Flags().StringVar(&chatsPath, "chats-out", "", "write restored chats to this file")
	return cmd
}

func backupListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups in cold storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.connect(cmd.Context(), true)
			if err != nil {
				return err
			}
			uid, err := app.CurrentUser()
			if err != nil {
				return err
			}

			objects, err := app.Backup.List(cmd.Context(), uid)
			if err != nil {
				return err
			}
			for _, o := range objects {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", o.Name, o.Size, o.LastModified.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func readPackage(path string) (*domain.BackupPackage, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	return backup.DecodePackage(data)
}
