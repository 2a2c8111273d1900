package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/zheng/gocfg/internal/cfg"
)

// Writer serializes module graphs to indented JSON files in a target
// directory. One file per module, or one per function in per-function mode.
type Writer struct {
	outDir      string
	perFunction bool
	logger      *slog.Logger
}

// NewWriter creates a writer targeting outDir (current directory when empty).
func NewWriter(outDir string, perFunction bool, logger *slog.Logger) *Writer {
	if outDir == "" {
		outDir = "."
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{outDir: outDir, perFunction: perFunction, logger: logger}
}

// WriteModule renders mg to disk. A failed write is reported through the
// diagnostic logger and returned, but callers are expected to keep processing
// the remaining modules; one missing artifact never aborts an export run.
func (w *Writer) WriteModule(mg *cfg.ModuleGraph) error {
	base := path.Base(mg.Module)

	if !w.perFunction {
		name := fmt.Sprintf("cfg.%s.json", base)
		return w.writeFile(name, mg)
	}

	var firstErr error
	for _, fg := range mg.Functions {
		name := fmt.Sprintf("cfg.%s.%s.json", base, sanitizeName(fg.Name))
		doc := &cfg.ModuleGraph{Module: mg.Module, Functions: []*cfg.FunctionGraph{fg}}
		if err := w.writeFile(name, doc); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (w *Writer) writeFile(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	target := filepath.Join(w.outDir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		w.logger.Error("写入 CFG 文件失败", "path", target, "err", err)
		return err
	}

	w.logger.Debug("已写入 CFG 文件", "path", target, "bytes", len(data))
	return nil
}

// sanitizeName flattens a qualified function name into something usable as a
// file-name component. Method receivers and closure markers carry characters
// that are unsafe in paths.
func sanitizeName(name string) string {
	r := strings.NewReplacer("/", "_", "(", "", ")", "", "*", "", "$", "_", " ", "")
	return r.Replace(name)
}
