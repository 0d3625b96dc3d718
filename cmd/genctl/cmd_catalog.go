package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/Text2APK/client/internal/domain/catalog"
)

func newFrameworksCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "frameworks",
		Short: "List the frameworks a generation can target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Catalog.LoadOnce(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", err)
			}
			printDescriptors(cmd, a.Catalog.Choices())
			return nil
		},
	}
}

func newCategoriesCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the application categories known to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Catalog.LoadOnce(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", err)
			}
			cats := a.Catalog.Categories()
			if len(cats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No categories available.")
				return nil
			}
			printDescriptors(cmd, cats)
			return nil
		},
	}
}

func printDescriptors(cmd *cobra.Command, ds []catalog.Descriptor) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, d := range ds {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.DisplayName, d.Description)
	}
	_ = tw.Flush()
}
