package commands

import (
	"github.com/spcai/labcms/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the storage schema",
		Long: `Apply pending schema migrations to the row store and, for the sqlite
object driver, to the object database. The fs object driver only needs its
bucket directory, which is created when missing.

Every command that opens storage migrates first; run this one to prepare
storage ahead of deployment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			result := output.MigrateOutput{
				Rows:   cc.Platform.Dialect(),
				Blobs:  cc.Cfg.Blobs.Driver,
				Bucket: cc.Platform.Blobs.Bucket(),
			}

			r := cc.Renderer
			switch r.EffectiveMode() {
			case output.ModeJSON:
				return r.JSON(result)
			case output.ModeMarkdown:
				r.Println(output.FormatHeader(1, "Migrated"))
				r.Println("")
				r.Println(output.FormatKeyValue("Rows", result.Rows))
				r.Println(output.FormatKeyValue("Blobs", result.Blobs))
				r.Println(output.FormatKeyValue("Bucket", result.Bucket))
			default:
				r.Success("Storage is up to date")
				r.KeyValue("Rows", result.Rows)
				r.KeyValue("Blobs", result.Blobs)
				r.KeyValue("Bucket", result.Bucket)
			}
			return nil
		},
	}
}
