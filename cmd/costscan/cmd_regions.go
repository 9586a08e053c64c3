package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yairfalse/costscan/internal/plugin"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Print the regions a scan would cover",
	Long: `Print the region list a scan would use: the configured regions, or
every region enabled for the account, minus excluded regions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyFlags(cmd, cfg, flags)
		pcfg, err := pluginConfig(cfg, "", nil)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		p, err := loadPlugin(cmd.Context(), pcfg, newAWSPlugin)
		if err != nil {
			return err
		}
		return printRegions(cmd.Context(), p, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(regionsCmd)
	regionsCmd.Flags().StringSliceVar(&flags.regions, "regions", nil, "Regions to use instead of every enabled region")
	regionsCmd.Flags().StringSliceVar(&flags.excludeRegions, "exclude-regions", nil, "Regions to skip")
	regionsCmd.Flags().StringVarP(&flags.profile, "profile", "p", "", "AWS shared config profile")
}

func printRegions(ctx context.Context, p plugin.Plugin, w io.Writer) error {
	regions, err := p.Regions(ctx)
	if err != nil {
		return err
	}
	for _, r := range regions {
		if _, err := fmt.Fprintln(w, r); err != nil {
			return err
		}
	}
	return nil
}
