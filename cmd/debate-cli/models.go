package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	RunE: func(cmd *cobra.Command, args []string) error {
		models, err := newAPIClient().ListModels(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, roundStyle.Render("PROVIDER")+"\t"+roundStyle.Render("MODEL")+"\t"+roundStyle.Render("NAME"))
		for _, m := range models {
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.Provider, m.ID, m.Name)
		}
		return w.Flush()
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage provider API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses, err := newAPIClient().ListKeys(cmd.Context())
		if err != nil {
			return err
		}
		for _, st := range statuses {
			mark := errorStyle.Render("missing")
			if st.Configured {
				mark = userStyle.Render("configured")
			}
			fmt.Printf("%-10s %s\n", st.Provider, mark)
		}
		return nil
	},
}

var keysSetCmd = &cobra.Command{
	Use:   "set <provider> <api-key>",
	Short: "Store an API key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPIClient().SaveKey(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Saved key for %s\n", args[0])
		return nil
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <provider>",
	Short: "Delete a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPIClient().DeleteKey(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted key for %s\n", args[0])
		return nil
	},
}

var keysTestCmd = &cobra.Command{
	Use:   "test <provider>",
	Short: "Check a provider key with a short call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newAPIClient().TestKey(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if result.Valid {
			fmt.Printf("%s: %s (%s)\n", result.Provider, userStyle.Render("ok"), result.Model)
			return nil
		}
		fmt.Printf("%s: %s %s\n", result.Provider, errorStyle.Render(string(result.Error)), result.Hint)
		return nil
	},
}

func init() {
	keysCmd.AddCommand(keysSetCmd)
	keysCmd.AddCommand(keysDeleteCmd)
	keysCmd.AddCommand(keysTestCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(keysCmd)
}
