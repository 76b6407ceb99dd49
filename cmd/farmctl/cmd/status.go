package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tendant/farmgate/pkg/guard"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether login is currently locked",
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

		printStatus(cmd.OutOrStdout(), g.CheckLock(cmd.Context()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printStatus(w io.Writer, st guard.Status) {
	if st.Locked {
		fmt.Fprintf(w, "Login locked. Try again in %ds (until %s).\n", st.Seconds(), st.Until.Local().Format("15:04:05"))
		return
	}
	fmt.Fprintf(w, "Login open. %d attempts left.\n", st.AttemptsLeft)
}
