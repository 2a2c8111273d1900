package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zheng/gocfg/internal/analyzer"
	"github.com/zheng/gocfg/internal/cfg"
	"github.com/zheng/gocfg/internal/config"
	"github.com/zheng/gocfg/internal/export"
)

func exportCmd() *cobra.Command {
	var outDir string
	var perFunction bool
	var unwrapDepth int

	cmd := &cobra.Command{
		Use:   "export [project-path]",
		Short: "导出项目的控制流图 (JSON)",
		Long: `分析 Go 项目并为每个函数导出控制流图（基本块、控制边、调用分类、
返回记录），每个包写入一个 cfg.<模块名>.json 文档，可供离线结构分析使用。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}

			// Config file first, flags override
			runCfg, err := config.Load(projectPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				runCfg.OutDir = outDir
			}
			if cmd.Flags().Changed("per-function") {
				runCfg.PerFunction = perFunction
			}
			if cmd.Flags().Changed("unwrap-depth") {
				runCfg.UnwrapDepth = unwrapDepth
			}

			// Load packages
			pkgs, err := analyzer.LoadPackages(projectPath)
			if err != nil {
				return fmt.Errorf("加载包失败: %w", err)
			}

			pkgs = analyzer.FilterSourcePackages(pkgs)
			if len(pkgs) == 0 {
				return fmt.Errorf("未找到有效的 Go 包")
			}

			// Build SSA
			prog, ssaPkgs := analyzer.BuildSSA(pkgs)

			exporter := cfg.NewExporter(prog, cfg.Options{UnwrapDepth: runCfg.UnwrapDepth})
			writer := export.NewWriter(runCfg.OutDir, runCfg.PerFunction, nil)

			modules := 0
			functions := 0
			failures := 0
			for _, pkg := range ssaPkgs {
				if pkg == nil {
					continue
				}

				mg, err := exporter.ExportPackage(pkg)
				if err != nil {
					// Unsupported input shape: stop rather than emit bad data
					return fmt.Errorf("导出 %s 失败: %w", pkg.Pkg.Path(), err)
				}
				if len(mg.Functions) == 0 {
					continue
				}

				// One failed write must not abort the remaining modules
				if err := writer.WriteModule(mg); err != nil {
					failures++
					continue
				}
				modules++
				functions += len(mg.Functions)
			}

			fmt.Printf("输出目录: %s\n", runCfg.OutDir)
			fmt.Printf("完成! 已导出 %d 个模块, %d 个函数\n", modules, functions)
			if failures > 0 {
				fmt.Fprintf(os.Stderr, "警告: %d 个模块写入失败\n", failures)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "输出目录")
	cmd.Flags().BoolVar(&perFunction, "per-function", false, "每个函数单独输出一个文件")
	cmd.Flags().IntVar(&unwrapDepth, "unwrap-depth", cfg.DefaultUnwrapDepth, "调用目标解析的最大间接层数")

	return cmd
}
