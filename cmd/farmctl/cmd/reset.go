package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the local failed-attempt count and any lock",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		g, store, err := openGuard(cfg, newLogger(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		defer store.Close()

		st := g.RecordSuccess(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Login attempt state cleared. %d attempts left.\n", st.AttemptsLeft)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
