package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/observability"
	"github.com/xkilldash9x/pagepilot/internal/store"
)

// newStateCmd creates the `state` command group for saved agent state.
func newStateCmd() *cobra.Command {
	var session string

	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or clear saved agent state",
	}
	stateCmd.PersistentFlags().StringVar(&session, "session", store.DefaultSession, "Name of the saved state.")
	stateCmd.PersistentFlags().String("state-file", "", "File holding the saved agent state. (Overrides config/env)")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the saved state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			st, closeStore, err := store.Open(ctx, cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			defer closeStore()

			state, err := st.Load(ctx, session)
			if err != nil {
				return err
			}
			if state.IsEmpty() {
				fmt.Fprintf(cmd.OutOrStdout(), "No saved state for session %q.\n", session)
				return nil
			}
			data, err := schemas.MarshalState(state)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			st, closeStore, err := store.Open(ctx, cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			defer closeStore()

			if err := st.Clear(ctx, session); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared saved state for session %q.\n", session)
			return nil
		},
	}

	stateCmd.AddCommand(showCmd, clearCmd)
	return stateCmd
}
