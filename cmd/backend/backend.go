// Package backend implements the backend command group: listing, health
// checks and switching the active extraction backend.
package backend

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"fjacquet/spendlog/cmd/root"
)

// Cmd is the backend command
var Cmd = &cobra.Command{
	Use:   "backend",
	Short: "Inspect and switch the AI backends",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the enabled backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.GetContainer(cmd.Context())
		if err != nil {
			return err
		}
		proc := c.GetProcessor()
		active := proc.ActiveBackend()
		for _, name := range proc.BackendNames() {
			marker := " "
			if name == active {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
		}
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe every backend and the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := root.GetContainer(ctx)
		if err != nil {
			return err
		}

		statuses := c.GetProcessor().HealthAll(ctx)
		names := make([]string, 0, len(statuses))
		for name := range statuses {
			names = append(names, name)
		}
		sort.Strings(names)

		out := cmd.OutOrStdout()
		unhealthy := 0
		for _, name := range names {
			s := statuses[name]
			state := "ok"
			if !s.Healthy {
				state = "down"
				unhealthy++
			}
			line := fmt.Sprintf("%-10s %-5s %s", name, state, s.Latency.Round(time.Millisecond))
			if s.Detail != "" {
				line += " " + s.Detail
			}
			fmt.Fprintln(out, line)
		}

		if err := c.GetStore().Ping(ctx); err != nil {
			fmt.Fprintf(out, "%-10s %-5s %v\n", "store", "down", err)
			unhealthy++
		} else {
			fmt.Fprintf(out, "%-10s %-5s\n", "store", "ok")
		}

		if unhealthy > 0 {
			return fmt.Errorf("%d component(s) unhealthy", unhealthy)
		}
		return nil
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch <name>",
	Short: "Make another enabled backend the active one",
	Long: `Switch the active backend for this process. To make the choice
permanent set backends.active in the configuration file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.GetContainer(cmd.Context())
		if err != nil {
			return err
		}
		proc := c.GetProcessor()
		if !proc.SwitchBackend(args[0]) {
			return fmt.Errorf("unknown backend %q (enabled: %v)", args[0], proc.BackendNames())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active backend: %s\n", proc.ActiveBackend())
		return nil
	},
}

func init() {
	Cmd.AddCommand(listCmd, healthCmd, switchCmd)
}
