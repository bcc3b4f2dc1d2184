// Command splitwye analyses a split-wye fuseless capacitor bank, runs its fault progression
// sweep and writes both results as xlsx workbooks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/synaptecltd/splitwye"
	"github.com/synaptecltd/splitwye/export"
	"github.com/synaptecltd/splitwye/phasor"
)

// shorts collects the network 1 elements to short before the single analysis, one "row,col"
// per flag occurrence.
type shorts [][2]int

func (s *shorts) String() string {
	parts := make([]string, len(*s))
	for i, rc := range *s {
		parts[i] = fmt.Sprintf("%d,%d", rc[0], rc[1])
	}
	return strings.Join(parts, " ")
}

func (s *shorts) Set(v string) error {
	fields := strings.Split(v, ",")
	if len(fields) != 2 {
		return fmt.Errorf("expected row,col, got %q", v)
	}
	var rc [2]int
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return fmt.Errorf("expected row,col, got %q", v)
		}
		rc[i] = n
	}
	*s = append(*s, rc)
	return nil
}

func main() {
	var (
		configPath   = flag.String("config", "", "yaml bank configuration, defaults used when empty")
		analysisPath = flag.String("analysis", "analysis.xlsx", "workbook for the two network analysis, empty to skip")
		sweepPath    = flag.String("sweep", "sweep.xlsx", "workbook for the fault progression sweep, empty to skip")
		level        = flag.String("log-level", "info", "logrus level")
		jsonLog      = flag.Bool("log-json", false, "log as json")
		shorted      shorts
	)
	flag.Var(&shorted, "short", "network 1 element to short in the analysis as row,col (repeatable)")
	flag.Parse()

	log := logrus.New()
	if *jsonLog {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	lvl, err := logrus.ParseLevel(*level)
	if err != nil {
		log.WithError(err).Fatal("invalid log level")
	}
	log.SetLevel(lvl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, log, *configPath, *analysisPath, *sweepPath, shorted); err != nil {
		log.WithError(err).Fatal("splitwye failed")
	}
}

func run(ctx context.Context, log *logrus.Logger, configPath, analysisPath, sweepPath string, shorted shorts) error {
	cfg := splitwye.DefaultBankConfig()
	if configPath != "" {
		var err error
		if cfg, err = splitwye.LoadConfig(configPath); err != nil {
			return err
		}
	}

	bank, err := splitwye.NewBank(cfg, splitwye.WithLogger(log))
	if err != nil {
		return err
	}

	if analysisPath != "" {
		grid1 := bank.NominalGrid()
		for _, rc := range shorted {
			if rc[0] < 0 || rc[0] >= cfg.Series || rc[1] < 0 || rc[1] >= cfg.Parallel {
				return fmt.Errorf("short %d,%d outside the %d x %d bank", rc[0], rc[1], cfg.Series, cfg.Parallel)
			}
			grid1.Set(rc[0], rc[1], phasor.Short)
		}
		a, err := bank.Analyse(grid1, bank.NominalGrid())
		if err != nil {
			return err
		}
		if err := writeFile(analysisPath, func(f *os.File) error {
			return export.WriteAnalysis(f, a, cfg.Frequency)
		}); err != nil {
			return err
		}
		log.WithField("path", analysisPath).Info("analysis written")
	}

	if sweepPath != "" {
		trajectory, err := bank.Sweep(ctx)
		if err != nil {
			return err
		}
		if err := writeFile(sweepPath, func(f *os.File) error {
			return export.WriteTrajectory(f, trajectory)
		}); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"path": sweepPath, "run": trajectory.ID}).Info("sweep written")
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
