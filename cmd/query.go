package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zheng/gocfg/internal/storage"
)

func queryCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "query <function-name>",
		Short: "查询已索引函数的基本块与调用者",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			funcName := args[0]

			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("打开数据库失败: %w", err)
			}
			defer db.Close()

			fn, err := db.GetFunctionByName(funcName)
			if err != nil {
				// Try pattern matching if exact match fails
				fns, err := db.FindFunctionsByPattern(funcName)
				if err != nil {
					return fmt.Errorf("查询失败: %w", err)
				}
				if len(fns) == 0 {
					return fmt.Errorf("未找到函数: %s", funcName)
				}
				if len(fns) > 1 {
					fmt.Println("找到多个匹配的函数:")
					for _, f := range fns {
						fmt.Printf("  %s (%s)\n", f.Name, f.Module)
					}
					return nil
				}
				fn = fns[0]
			}

			blocks, err := db.GetBlocks(fn.ID)
			if err != nil {
				return fmt.Errorf("查询基本块失败: %w", err)
			}
			callers, err := db.GetCallers(fn.Name)
			if err != nil {
				return fmt.Errorf("查询调用者失败: %w", err)
			}

			if format == "json" {
				return outputJSON(map[string]any{
					"function": fn,
					"blocks":   blocks,
					"callers":  callers,
				})
			}

			fmt.Printf("函数: %s\n模块: %s\n入口: %s\n\n", fn.Name, fn.Module, fn.Entry)

			fmt.Printf("基本块 (%d):\n", len(blocks))
			for _, b := range blocks {
				lines := "-"
				if b.StartLine != nil && b.EndLine != nil {
					lines = fmt.Sprintf("%d-%d", *b.StartLine, *b.EndLine)
				}
				fmt.Printf("  %-20s 行 %-12s %d 条指令\n", b.Label, lines, b.Size)
			}

			fmt.Printf("\n调用者 (%d):\n", len(callers))
			if len(callers) == 0 {
				fmt.Println("  (无)")
			}
			for _, c := range callers {
				fmt.Printf("  %s @ %s\n", c.Function, c.Block)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")

	return cmd
}
