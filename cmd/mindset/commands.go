package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/analysis"
	"github.com/Aidin1998/mindset_analyzer/internal/artifact"
	"github.com/Aidin1998/mindset_analyzer/internal/dataset"
	"github.com/Aidin1998/mindset_analyzer/internal/registry"
	"github.com/Aidin1998/mindset_analyzer/internal/training"
	"github.com/Aidin1998/mindset_analyzer/pkg/logger"
)

// newFlagSet registers the flags shared by every command.
func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringSliceP("config", "c", nil, "config file (repeatable)")
	date := fs.StringP("date", "d", time.Now().UTC().Format(time.DateOnly), "data date (YYYY-MM-DD)")
	return fs, date
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput.Explain("invalid date %q", s).Wrap(err)
	}
	return d, nil
}

func runCollect(_ context.Context, app *app, args []string) error {
	fs, dateFlag := newFlagSet("collect")
	seed := fs.Uint64("seed", app.cfg.Data.Seed, "simulator seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	date, err := parseDate(*dateFlag)
	if err != nil {
		return err
	}

	log := logger.Component(app.logger, "collector")
	tables := dataset.NewSimulator(*seed).CollectAll(date)
	store := dataset.NewFileStore(app.cfg.Data.Dir)
	if err := store.Save(date, tables); err != nil {
		return err
	}
	log.Infow("Collected data",
		"date", date.Format(time.DateOnly),
		"dir", app.cfg.Data.Dir,
		"rows", tables[dataset.Mindset].Len(),
		"seed", *seed,
	)
	return nil
}

func runTrain(ctx context.Context, app *app, args []string) error {
	fs, dateFlag := newFlagSet("train")
	if err := fs.Parse(args); err != nil {
		return err
	}
	date, err := parseDate(*dateFlag)
	if err != nil {
		return err
	}

	var runs training.RunRecorder
	if app.cfg.Registry.Enabled {
		reg, err := registry.Open(app.cfg.Registry.Driver, app.cfg.Registry.DSN, logger.Component(app.logger, "registry"))
		if err != nil {
			return err
		}
		defer reg.Close()
		runs = reg
	}

	store := dataset.NewFileStore(app.cfg.Data.Dir)
	pipeline := training.NewPipeline(app.cfg, store, runs, logger.Component(app.logger, "training"))
	res, err := pipeline.TrainForDate(ctx, date)
	if err != nil {
		return err
	}

	loss, mae, valLoss, valMAE := res.History.Final()
	fmt.Printf("artifact %s saved to %s\n", res.Artifact.ID, res.Run.ArtifactDir)
	fmt.Printf("loss %.4f  mae %.4f  val_loss %.4f  val_mae %.4f\n", loss, mae, valLoss, valMAE)
	return nil
}

func runAnalyze(ctx context.Context, app *app, args []string) error {
	fs, dateFlag := newFlagSet("analyze")
	showCorrelations := fs.Bool("correlations", false, "print feature correlations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	date, err := parseDate(*dateFlag)
	if err != nil {
		return err
	}

	a, err := loadArtifact(ctx, app, date)
	if err != nil {
		return err
	}

	store := dataset.NewFileStore(app.cfg.Data.Dir)
	an := analysis.NewAnalyzer(a, store, app.cfg.Data.StrictTimestamps, logger.Component(app.logger, "analysis"))
	res, err := an.DailyPatterns(ctx, date)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "timestamp")
	for _, t := range res.Targets {
		fmt.Fprintf(w, "\t%s", t)
	}
	fmt.Fprintln(w)
	for i, row := range res.Values {
		fmt.Fprint(w, res.Timestamps[i].Format(time.DateTime))
		for _, v := range row {
			fmt.Fprintf(w, "\t%.3f", v)
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	insights, err := analysis.Insights(res)
	if err != nil {
		return err
	}
	fmt.Println("\nMindset Analysis Insights:")
	for _, in := range insights {
		fmt.Printf("- %s\n", in)
	}

	if !*showCorrelations {
		return nil
	}
	corr, err := analysis.Correlations(res, res.Tables)
	if err != nil {
		return err
	}
	fmt.Println("\nCorrelations:")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, c := range corr {
		coef := "n/a"
		if !math.IsNaN(c.Coefficient) {
			coef = fmt.Sprintf("%+.3f", c.Coefficient)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Target, c.Feature, coef)
	}
	return w.Flush()
}

// loadArtifact prefers the artifact of the latest successful run for date
// when the registry is enabled, and falls back to the published one.
func loadArtifact(ctx context.Context, app *app, date time.Time) (*artifact.Artifact, error) {
	if !app.cfg.Registry.Enabled {
		return artifact.LoadCurrent(ctx, app.cfg.Model.Dir)
	}
	reg, err := registry.Open(app.cfg.Registry.Driver, app.cfg.Registry.DSN, logger.Component(app.logger, "registry"))
	if err != nil {
		return nil, err
	}
	defer reg.Close()

	run, err := reg.Latest(ctx, date)
	if apperrors.Is(err, apperrors.ArtifactNotFound) {
		app.logger.Info("No recorded run for date, using published artifact",
			zap.String("date", date.Format(time.DateOnly)),
			zap.String("dir", app.cfg.Model.Dir),
		)
		return artifact.LoadCurrent(ctx, app.cfg.Model.Dir)
	}
	if err != nil {
		return nil, err
	}
	if run.ArtifactID == nil {
		return nil, apperrors.ArtifactNotFound.Explain("run %s recorded no artifact", run.ID)
	}
	return artifact.LoadVersion(ctx, run.ArtifactDir, *run.ArtifactID)
}

func runRuns(ctx context.Context, app *app, args []string) error {
	fs, _ := newFlagSet("runs")
	limit := fs.IntP("limit", "n", 20, "maximum runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !app.cfg.Registry.Enabled {
		return apperrors.InvalidInput.Explain("registry is disabled; set registry.enabled")
	}

	reg, err := registry.Open(app.cfg.Registry.Driver, app.cfg.Registry.DSN, logger.Component(app.logger, "registry"))
	if err != nil {
		return err
	}
	defer reg.Close()

	runs, err := reg.List(ctx, *limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "run\tdate\tstatus\texamples\tloss\tval_loss\tduration")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\t%.4f\t%s\n",
			r.ID, r.DataDate.Format(time.DateOnly), r.Status, r.Examples,
			r.FinalLoss, r.FinalValLoss, r.Duration().Round(time.Millisecond))
	}
	return w.Flush()
}
