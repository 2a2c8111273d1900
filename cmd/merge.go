package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zheng/gocfg/internal/cfg"
)

func mergeCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "merge -o <out.json> <json...>",
		Short: "合并多个 CFG JSON 文档",
		Long:  "将多个 cfg.*.json 文档合并为一个文件，同一模块的函数会被拼接在一起。",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mods []*cfg.ModuleGraph
			for _, p := range args {
				mg, err := cfg.LoadModuleGraph(p)
				if err != nil {
					return err
				}
				mods = append(mods, mg)
			}

			merged := cfg.Merge(mods)

			data, err := json.MarshalIndent(merged, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if err := os.WriteFile(outFile, data, 0o644); err != nil {
				return fmt.Errorf("写入输出文件失败: %w", err)
			}

			fmt.Printf("已合并 %d 个文档 -> %s (%d 个模块)\n", len(args), outFile, len(merged))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "o", "", "输出文件路径")
	cmd.MarkFlagRequired("out")

	return cmd
}
