package cmd

import (
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/browser"
	"github.com/xkilldash9x/pagepilot/internal/dom"
	"github.com/xkilldash9x/pagepilot/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// pageReport is the outcome of analyzing one URL.
type pageReport struct {
	URL     string               `json:"url"`
	Context *schemas.PageContext `json:"page,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// newAnalyzeCmd creates the `analyze` command.
func newAnalyzeCmd() *cobra.Command {
	var asJSON bool

	analyzeCmd := &cobra.Command{
		Use:   "analyze <url...>",
		Short: "Print the page state the planner would see for each URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			mgr, err := browser.NewManager(ctx, cfg.Browser, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := mgr.Close(); err != nil {
					logger.Warn("Error during browser shutdown", zap.Error(err))
				}
			}()

			targets := make([]string, len(args))
			for i, a := range args {
				targets[i] = normalizeURL(a)
			}
			reports := analyzePages(ctx, mgr, targets, cfg.Browser.Concurrency, logger)
			return writeReports(cmd.OutOrStdout(), reports, asJSON)
		},
	}
	analyzeCmd.Flags().BoolVar(&asJSON, "json", false, "Print the full page context as JSON.")
	return analyzeCmd
}

// pageOpener is the part of browser.Manager the analyze command needs.
type pageOpener interface {
	NewPage(ctx context.Context) (*browser.Page, error)
}

// analyzePages analyzes every target in its own tab, at most limit at a
// time. Reports come back in input order; one failing page does not stop
// the others.
func analyzePages(ctx context.Context, opener pageOpener, targets []string, limit int, logger *zap.Logger) []pageReport {
	reports := make([]pageReport, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, target := range targets {
		g.Go(func() error {
			reports[i] = analyzeOne(gctx, opener, target, logger)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func analyzeOne(ctx context.Context, opener pageOpener, target string, logger *zap.Logger) pageReport {
	report := pageReport{URL: target}
	page, err := opener.NewPage(ctx)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	defer page.Close()

	if err := page.Navigate(ctx, target); err != nil {
		report.Error = err.Error()
		return report
	}
	pc, err := dom.NewAnalyzer(page, logger).Analyze(ctx)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Context = pc
	return report
}

func writeReports(out io.Writer, reports []pageReport, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode reports: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	failed := 0
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(out, "\n----------------------------------------------------------------")
		}
		if r.Error != "" {
			failed++
			fmt.Fprintf(out, "%s\nERROR: %s\n", r.URL, r.Error)
			continue
		}
		fmt.Fprintln(out, dom.Describe(r.Context))
	}
	if failed == len(reports) {
		return fmt.Errorf("all %d page(s) failed to load", failed)
	}
	return nil
}
