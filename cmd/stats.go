package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zheng/gocfg/internal/cfg"
	"github.com/zheng/gocfg/internal/metrics"
)

func statsCmd() *cobra.Command {
	var entry string
	var dotPath string
	var format string

	cmd := &cobra.Command{
		Use:   "stats <json-dir>",
		Short: "计算 CFG 的结构指标",
		Long: `读取目录下的 cfg.*.json 文档，拼接跨函数控制流图，并从入口函数
计算结构指标（基本块数、边数、未解析调用数、离心率、最长路径）。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mods, err := loadModuleGraphs(args[0])
			if err != nil {
				return err
			}
			if len(mods) == 0 {
				return fmt.Errorf("目录 %s 中未找到 cfg.*.json 文件", args[0])
			}

			g := metrics.BuildGraph(mods)

			if dotPath != "" {
				if err := os.WriteFile(dotPath, []byte(g.WriteDOT()), 0o644); err != nil {
					return fmt.Errorf("写入 DOT 文件失败: %w", err)
				}
				fmt.Fprintf(os.Stderr, "已写入 %s\n", dotPath)
			}

			entryNode, ok := g.EntryNode(entry)
			if !ok {
				return fmt.Errorf("未找到入口函数 %q", entry)
			}

			st, err := g.ReachableStats(entryNode)
			if err != nil {
				return err
			}

			if format == "json" {
				return outputJSON(st)
			}

			fmt.Printf("入口节点: %s\n", st.Entry)
			fmt.Printf("  基本块数:     %d\n", st.NumBlocks)
			fmt.Printf("  边数:         %d\n", st.NumEdges)
			fmt.Printf("  未解析调用数: %d\n", st.UnresolvedCalls)
			fmt.Printf("  离心率:       %d\n", st.Eccentricity)
			fmt.Printf("  最长路径:     %d\n", st.LongestPath)
			fmt.Printf("全图: %d 节点, %d 边 (调用边 %d, 返回边 %d)\n",
				g.NumNodes(), g.NumEdges(), g.EdgeCount(metrics.KindCall), g.EdgeCount(metrics.KindReturn))

			return nil
		},
	}

	cmd.Flags().StringVarP(&entry, "entry", "e", "main", "入口函数名")
	cmd.Flags().StringVar(&dotPath, "dot", "", "生成 DOT 文件的路径")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")

	return cmd
}

// loadModuleGraphs reads every cfg.*.json document in dir.
func loadModuleGraphs(dir string) ([]*cfg.ModuleGraph, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "cfg.*.json"))
	if err != nil {
		return nil, err
	}

	var mods []*cfg.ModuleGraph
	for _, p := range paths {
		mg, err := cfg.LoadModuleGraph(p)
		if err != nil {
			return nil, err
		}
		mods = append(mods, mg)
	}
	return mods, nil
}
