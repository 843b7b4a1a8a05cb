package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/scholar-assistant/config"
	"github.com/fyerfyer/scholar-assistant/internal/bootstrap"
	"github.com/fyerfyer/scholar-assistant/internal/document"
	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootOptions 所有子命令共享的参数
type rootOptions struct {
	configFile string
	envFile    string
	verbose    bool

	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "scholar",
		Short:        "Offline tools for translating, summarizing and polishing papers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "config.yaml", "Path to config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "Path to .env file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newProcessCmd(opts),
		newNumberCmd(opts),
		newRenderCmd(opts),
	)
	return cmd
}

// load 读取环境变量文件和配置，初始化日志
func (o *rootOptions) load(stderr io.Writer) error {
	if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", o.envFile, err)
	}

	cfg, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	o.cfg = cfg

	// 标准输出留给命令结果，日志只写标准错误
	logCfg := cfg.Log
	logCfg.File = ""
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(stderr)
	o.logger = bootstrap.ConfigureLogger(logger, logCfg)
	return nil
}

// readSnapshot 按扩展名读取输入文件
// json/yaml 为会话快照，md/txt 为论文正文
func readSnapshot(path string) (paper.Snapshot, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if format, ok := paper.FormatFromExt(ext); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return paper.Snapshot{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return paper.Decode(data, format)
	}

	p, err := document.ImportFile(path)
	if err != nil {
		return paper.Snapshot{}, err
	}
	return paper.NewSnapshot(p, nil), nil
}

// writeSnapshot 按扩展名写出快照，路径为空时以JSON写到w
func writeSnapshot(w io.Writer, path string, s paper.Snapshot) error {
	format := paper.FormatJSON
	if path != "" {
		f, ok := paper.FormatFromExt(strings.ToLower(filepath.Ext(path)))
		if !ok {
			return fmt.Errorf("unsupported output file: %s", path)
		}
		format = f
	}

	data, err := paper.Encode(s, format)
	if err != nil {
		return err
	}
	if path == "" {
		_, err = w.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0644)
}
