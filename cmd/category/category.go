// Package category implements the category command group.
package category

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"fjacquet/spendlog/cmd/root"
	"fjacquet/spendlog/internal/models"
)

var (
	polarityFlag string
	outputFile   string
)

// Cmd is the category command
var Cmd = &cobra.Command{
	Use:   "category",
	Short: "Manage the tenant's categories",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := root.GetContainer(ctx)
		if err != nil {
			return err
		}
		cats, err := c.GetProcessor().ListCategories(ctx, root.SharedFlags.Tenant)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, cat := range cats {
			fmt.Fprintf(out, "%s %s %-8s %s\n", cat.ID, cat.Icon, cat.Polarity, cat.Name)
		}
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a custom category (returns the existing one if the name is taken)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		polarity, ok := models.ParsePolarity(polarityFlag)
		if !ok {
			return fmt.Errorf("invalid polarity %q: use income or expense", polarityFlag)
		}
		ctx := cmd.Context()
		c, err := root.GetContainer(ctx)
		if err != nil {
			return err
		}
		cat, err := c.GetProcessor().CreateCategory(ctx, root.SharedFlags.Tenant, args[0], polarity)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", cat.ID, cat.Icon, cat.Name)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Soft-delete a category; past transactions keep their reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid category id %q: %w", args[0], err)
		}
		ctx := cmd.Context()
		c, err := root.GetContainer(ctx)
		if err != nil {
			return err
		}
		if err := c.GetProcessor().SoftDeleteCategory(ctx, id, root.SharedFlags.Tenant, root.SharedFlags.Actor); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Copy the category templates into the tenant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := root.GetContainer(ctx)
		if err != nil {
			return err
		}
		n, err := c.GetProcessor().InitializeTenant(ctx, root.SharedFlags.Tenant)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d categories\n", n)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the active categories as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		c, err := root.GetContainer(ctx)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("error creating output file: %w", err)
			}
			defer func() {
				if cerr := f.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()
			w = f
		}
		return c.GetCatalog().ExportCSV(ctx, root.SharedFlags.Tenant, w)
	},
}

func init() {
	createCmd.Flags().StringVarP(&polarityFlag, "polarity", "p", string(models.PolarityExpense), "income or expense")
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output CSV file (default: stdout)")
	Cmd.AddCommand(listCmd, createCmd, deleteCmd, initCmd, exportCmd)
}
