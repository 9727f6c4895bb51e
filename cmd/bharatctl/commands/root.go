package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// cli carries the state shared by every command of one invocation
type cli struct {
	open   Opener
	dbPath string
	app    *App
}

// connect opens the App once per invocation
func (c *cli) connect(ctx context.Context, backupStore bool) (*App, error) {
	if c.app != nil {
		return c.app, nil
	}
	app, err := c.open(ctx, OpenOptions{DBPath: c.dbPath, BackupStore: backupStore})
	if err != nil {
		return nil, err
	}
	c.app = app
	return app, nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

// Execute runs bharatctl against the configured backends
func Execute() error {
	return NewRootCmd(OpenFromConfig).Execute()
}

// NewRootCmd builds the command tree. open is called lazily by commands that
// need the device services.
func NewRootCmd(open Opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:          "bharatctl",
		Short:        "BharatConnect device client for end-to-end encrypted messaging",
		SilenceUsage: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}

	root.PersistentFlags().StringVar(&c.dbPath, "db", os.Getenv("BHARAT_DEVICE_DB"),
		"device database (default ~/.bharatconnect/device.db)")

	root.AddCommand(
		loginCmd(c),
		onboardCmd(c),
		logoutCmd(c),
		whoamiCmd(c),
		encryptCmd(c),
		decryptCmd(c),
		backupCmd(c),
	)
	return root
}
