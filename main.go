package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zheng/gocfg/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gocfg",
		Short: "Go 控制流图导出工具",
		Long: `gocfg 是一个 Go 代码静态分析工具，为每个函数导出控制流图
（基本块、控制边、跨函数调用边）到 JSON 文档，供离线结构分析
（如离心率、最长路径）使用。`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cmd.DbPath, "db", "d", ".gocfg.db", "数据库文件路径")

	cmd.RegisterCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
