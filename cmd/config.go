package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"resumelift/internal/config"
)

var (
	configInitPath  string
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the resumelift configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		cfg := appInstance.Config

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Key", "Value"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.AppendBulk([][]string{
			{"api.base_url", cfg.API.BaseURL},
			{"api.origin", cfg.API.Origin},
			{"(resolved backend)", appInstance.BaseURL},
			{"timeouts.wake", cfg.Timeouts.Wake.String()},
			{"timeouts.analyze", cfg.Timeouts.Analyze.String()},
			{"timeouts.connection_test", cfg.Timeouts.ConnectionTest.String()},
			{"log.level", cfg.Log.Level},
			{"log.format", cfg.Log.Format},
			{"export.format", cfg.Export.Format},
			{"export.dir", cfg.Export.Dir},
			{"export.s3.enabled", strconv.FormatBool(cfg.Export.S3.Enabled)},
			{"export.s3.bucket", cfg.Export.S3.Bucket},
			{"export.s3.prefix", cfg.Export.S3.Prefix},
			{"export.s3.region", cfg.Export.S3.Region},
			{"export.s3.endpoint", cfg.Export.S3.Endpoint},
			{"export.s3.access_key", mask(cfg.Export.S3.AccessKey)},
			{"export.s3.secret_key", mask(cfg.Export.S3.SecretKey)},
			{"server.addr", cfg.Server.Addr},
			{"server.max_upload_mb", strconv.Itoa(cfg.Server.MaxUploadMB)},
		})
		table.Render()
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a default config.yaml",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipAppAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.WriteDefaultConfig(configInitPath, configInitForce)
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%s already exists; use --force to overwrite", path)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Wrote"), path)
		return nil
	},
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 4:
		return "****"
	default:
		return secret[:4] + "****"
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "where to write the file (default ~/.config/resumelift/config.yaml)")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}
