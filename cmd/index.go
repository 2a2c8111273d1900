package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zheng/gocfg/internal/storage"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <json-dir>",
		Short: "将 CFG JSON 文档导入 SQLite 索引",
		Long:  "读取目录下的 cfg.*.json 文档并写入 SQLite 数据库，便于对大规模导出做查询。",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mods, err := loadModuleGraphs(args[0])
			if err != nil {
				return err
			}
			if len(mods) == 0 {
				return fmt.Errorf("目录 %s 中未找到 cfg.*.json 文件", args[0])
			}

			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			if err := db.Clear(); err != nil {
				return fmt.Errorf("清空数据库失败: %w", err)
			}

			for _, mg := range mods {
				if err := db.InsertModuleGraph(mg); err != nil {
					return fmt.Errorf("导入 %s 失败: %w", mg.Module, err)
				}
			}

			funcCount, blockCount, edgeCount, _ := db.GetStats()
			fmt.Printf("写入数据库: %s\n", DbPath)
			fmt.Printf("完成! 已索引 %d 个函数, %d 个基本块, %d 条边\n", funcCount, blockCount, edgeCount)

			return nil
		},
	}

	return cmd
}
