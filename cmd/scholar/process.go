package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fyerfyer/scholar-assistant/internal/bootstrap"
	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/pipeline"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type processOptions struct {
	in        string
	out       string
	translate bool
	polish    bool
	lang      string
}

func newProcessCmd(root *rootOptions) *cobra.Command {
	opts := &processOptions{}

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the analyze or polish pipeline on a paper file",
		Long: `Run the analyze or polish pipeline on a paper file.

The input may be a session snapshot (.json/.yaml) or paper text (.md/.txt).
The resulting snapshot is written to --out, or to stdout as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.in, "in", "i", "", "Input file")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output snapshot file (.json or .yaml)")
	cmd.Flags().BoolVar(&opts.translate, "translate", false, "Translate into Chinese while analyzing")
	cmd.Flags().BoolVar(&opts.polish, "polish", false, "Polish instead of analyze")
	cmd.Flags().StringVar(&opts.lang, "lang", "en", "Polish language: en or zh")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func runProcess(cmd *cobra.Command, root *rootOptions, opts *processOptions) error {
	lang, err := paper.ParseLanguage(opts.lang)
	if err != nil {
		return err
	}
	if opts.polish && opts.translate {
		return errors.New("--translate and --polish cannot be used together")
	}

	snap, err := readSnapshot(opts.in)
	if err != nil {
		return err
	}

	client, err := bootstrap.NewLLMClient(root.cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	tr := bootstrap.NewTransformer(root.cfg, client, root.logger)

	orch := pipeline.NewOrchestrator(tr,
		pipeline.WithLogger(root.logger),
		pipeline.WithBodyOffset(root.cfg.Pipeline.BodyOffset),
		pipeline.WithStatusHook(func(status paper.Status) {
			root.logger.WithField("status", status).Debug("Pipeline status changed")
		}),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if root.cfg.Pipeline.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, root.cfg.Pipeline.ProcessTimeout)
		defer cancel()
	}

	result := orch.Run(ctx, snap.Paper, pipeline.Options{
		Translate:      opts.translate,
		Polish:         opts.polish,
		PolishLanguage: lang,
	})

	root.logger.WithFields(logrus.Fields{
		"mode":      result.Mode,
		"status":    result.Status,
		"fallbacks": result.Fallbacks,
	}).Info("Paper processed")

	return writeSnapshot(cmd.OutOrStdout(), opts.out, paper.NewSnapshot(snap.Paper, result))
}
