package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zheng/gocfg/internal/config"
	"github.com/zheng/gocfg/internal/watcher"
)

func watchCmd() *cobra.Command {
	var outDir string
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch [project-path]",
		Short: "监控文件变更并自动重新导出 CFG",
		Long: `启动 watch 模式，监控项目中的 Go 文件变更。
检测到变更时自动重新分析并更新 cfg.*.json 文档。

特性：
  - 自动递归监控所有目录
  - 防抖处理，避免频繁触发分析
  - 忽略隐藏目录、vendor、_test.go 等

示例：
  gocfg watch .                 # 监控当前目录
  gocfg watch . -o out/         # 指定输出目录
  gocfg watch . --debounce 1000 # 设置 1 秒防抖延迟`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}

			runCfg, err := config.Load(projectPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				runCfg.OutDir = outDir
			}

			fmt.Printf("开始监控目录: %s\n", projectPath)
			fmt.Printf("输出目录: %s\n", runCfg.OutDir)
			fmt.Printf("防抖延迟: %dms\n", debounceMs)
			fmt.Println("\n按 Ctrl+C 停止...")
			fmt.Println()

			w, err := watcher.New(
				projectPath,
				runCfg,
				watcher.WithDebounceDelay(time.Duration(debounceMs)*time.Millisecond),
				watcher.WithOnExportStart(func() {
					fmt.Printf("[%s] 检测到变更，开始导出...\n", time.Now().Format("15:04:05"))
				}),
				watcher.WithOnExportDone(func(modules, functions int, duration time.Duration) {
					fmt.Printf("[%s] 导出完成: %d 个模块, %d 个函数 (耗时 %v)\n",
						time.Now().Format("15:04:05"), modules, functions, duration.Round(time.Millisecond))
				}),
				watcher.WithOnError(func(err error) {
					fmt.Fprintf(os.Stderr, "[%s] 错误: %v\n", time.Now().Format("15:04:05"), err)
				}),
			)
			if err != nil {
				return fmt.Errorf("创建监控器失败: %w", err)
			}

			w.Start()
			defer w.Stop()

			// Wait for interrupt signal
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			fmt.Println("\n停止监控...")
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "输出目录")
	cmd.Flags().IntVar(&debounceMs, "debounce", 500, "防抖延迟（毫秒）")

	return cmd
}
