package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/storage"
	"github.com/yeisme/drivevault/pkg/internal/storage/db"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "metadata database commands",
	}

	dbListCmd = &cobra.Command{
		Use:     "ls",
		Short:   "list the compiled-in database drivers",
		Aliases: []string{"list"},
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range db.GetRegisteredDBTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}

	dbStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "print row counts per table, including trashed items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(); err != nil {
				return err
			}

			mgr, err := storage.New(cmd.Context(), configs.GetConfig(), nil, storage.ComponentDB)
			if err != nil {
				return err
			}
			defer mgr.Close()

			gdb := mgr.DB.GetDB().WithContext(cmd.Context())

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tROWS\tTRASHED")

			for _, m := range model.AllModels() {
				table, total, trashed, err := countRows(gdb, m)
				if err != nil {
					return err
				}

				fmt.Fprintf(w, "%s\t%d\t%s\n", table, total, trashed)
			}

			return w.Flush()
		},
	}
)

// countRows 统计行数，带 is_deleted 列的表额外统计回收站中的行.
func countRows(gdb *gorm.DB, m any) (string, int64, string, error) {
	stmt := &gorm.Statement{DB: gdb}
	if err := stmt.Parse(m); err != nil {
		return "", 0, "", err
	}

	table := stmt.Schema.Table

	var total int64
	if err := gdb.Model(m).Count(&total).Error; err != nil {
		return table, 0, "", fmt.Errorf("count %s: %w", table, err)
	}

	if stmt.Schema.LookUpField("is_deleted") == nil {
		return table, total, "-", nil
	}

	var trashed int64
	if err := gdb.Model(m).Where("is_deleted = ?", true).Count(&trashed).Error; err != nil {
		return table, total, "", fmt.Errorf("count trashed %s: %w", table, err)
	}

	return table, total, fmt.Sprint(trashed), nil
}

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbListCmd, dbStatsCmd)
}
