// cmd/trajgen/main.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// trajgen propagates the flights and ground vehicles of a scenario from
// gate to gate and writes the resulting trajectories.
//
// Usage: trajgen -scenario <file.yaml|file.json> [-out traj.msgpack.zst] [-json traj.json]
//
// Scenario, GRIB2, and output paths may also be given as gs://bucket/object
// URLs.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/mmp/trajgen/log"
	"github.com/mmp/trajgen/nav"
	"github.com/mmp/trajgen/sim"
	"github.com/mmp/trajgen/storage"
	"github.com/mmp/trajgen/util"
)

var (
	scenarioFilename = flag.String("scenario", "", "filename of YAML or JSON scenario definition")
	logLevel         = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir           = flag.String("logdir", "", "log file directory")
	cpuprofile       = flag.String("cpuprofile", "", "write CPU profile to file")
	memprofile       = flag.String("memprofile", "", "write memory profile to this file")
	outFilename      = flag.String("out", "", "write trajectories as compressed msgpack to this file")
	jsonFilename     = flag.String("json", "", "write trajectories as JSON to this file")
	dumpFilename     = flag.String("dump", "", "write the state of aircraft that ended abnormally to this file")
	checkpointFile   = flag.String("checkpoint", "", "save a checkpoint to this file if the run is interrupted")
	resumeFile       = flag.String("resume", "", "resume from a checkpoint written by -checkpoint")
	duration         = flag.Duration("duration", 0, "override the scenario's duration")
	seed             = flag.Int64("seed", -1, "override the scenario's random seed")
	workers          = flag.Int("workers", 0, "number of propagation workers (0: scenario setting)")
	gribFilename     = flag.String("grib", "", "GRIB2 file with winds valid at the scenario start")
	lint             = flag.Bool("lint", false, "check the scenario for errors and exit")
	printEvents      = flag.Bool("events", false, "print simulation events as they happen")
	navLog           = flag.Bool("navlog", false, "enable navigation logging")
	navLogCategories = flag.String("navlog-categories", "all", "navigation log categories (comma-separated: state,phase,waypoint,hold,runway,clearance,route)")
	navLogCallsign   = flag.String("navlog-callsign", "", "filter navigation logs to only show this callsign (empty = show all)")
)

func main() {
	flag.Parse()

	lg := log.New(*logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	if *scenarioFilename == "" {
		fmt.Fprintln(os.Stderr, "trajgen: -scenario must be specified")
		flag.Usage()
		os.Exit(1)
	}

	profiler, err := util.CreateProfiler(*cpuprofile, *memprofile)
	if err != nil {
		lg.Errorf("%v", err)
	}
	defer profiler.Cleanup()

	nav.InitNavLog(*navLog, *navLogCategories, *navLogCallsign)

	ctx := context.Background()
	sc, err := loadScenario(ctx, *scenarioFilename)
	if err != nil {
		lg.Errorf("%v", err)
		os.Exit(1)
	}
	if err := applyOverrides(ctx, sc); err != nil {
		lg.Errorf("%v", err)
		os.Exit(1)
	}

	var e util.ErrorLogger
	e.Push(*scenarioFilename)
	sc.Validate(&e)
	e.Pop()
	if e.HaveErrors() {
		e.PrintErrors(lg)
		fmt.Fprintf(os.Stderr, "%s: %d errors\n", *scenarioFilename, len(e.Errors()))
		os.Exit(1)
	}
	if *lint {
		fmt.Printf("%s: %d flights, %d ground vehicles\n", *scenarioFilename, len(sc.Flights), len(sc.Vehicles))
		return
	}

	if err := run(sc, lg); err != nil {
		lg.Errorf("%v", err)
		profiler.Cleanup()
		os.Exit(1)
	}
}

func loadScenario(ctx context.Context, url string) (*sim.Scenario, error) {
	r, err := storage.OpenRead(ctx, url)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	sc, err := sim.ReadScenario(r, path.Ext(url))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return sc, nil
}

func applyOverrides(ctx context.Context, sc *sim.Scenario) error {
	if *duration > 0 {
		sc.Config.End = sc.Config.Start.Add(*duration)
	}
	if *seed >= 0 {
		sc.Config.Seed = *seed
	}
	if *workers > 0 {
		sc.Config.Workers = *workers
	}
	if *gribFilename != "" {
		f, err := storage.DownloadToTemp(ctx, *gribFilename, os.TempDir())
		if err != nil {
			return err
		}
		sc.Wind.GRIB = append(sc.Wind.GRIB, sim.GRIBFile{File: f, Time: sc.Config.Start})
	}
	return nil
}

func run(sc *sim.Scenario, lg *log.Logger) error {
	store := func(url string, write func(w io.Writer) error) error {
		n, err := storage.Store(context.Background(), url, write)
		if err == nil {
			lg.Info("wrote output", "url", url, "bytes", n)
		}
		return err
	}

	s, err := sim.NewSim(sc, lg)
	if err != nil {
		return err
	}
	defer s.Destroy()

	if *resumeFile != "" {
		if err := loadCheckpoint(s, *resumeFile); err != nil {
			return err
		}
		if s.Status() == sim.StatusPaused {
			if err := s.Resume(); err != nil {
				return err
			}
		}
	} else if err := s.Start(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *printEvents {
		sub := s.Subscribe()
		go func() {
			defer sub.Unsubscribe()
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				for _, ev := range sub.Get() {
					fmt.Println(ev.String())
				}
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}

	start := time.Now()
	runErr := s.Run(ctx)
	lg.Info("run finished", "elapsed", time.Since(start), "sim_time", s.SimTime(), "status", s.Status().String(),
		"stats", s.Stats)

	if runErr != nil && ctx.Err() != nil && *checkpointFile != "" {
		if err := s.Pause(); err != nil {
			lg.Warnf("pause: %v", err)
		}
		if err := store(*checkpointFile, s.SaveCheckpoint); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "interrupted at %s; checkpoint written to %s\n", s.SimTime().Format(time.RFC3339),
			*checkpointFile)
	} else if runErr != nil {
		return runErr
	}

	if *outFilename != "" {
		if err := store(*outFilename, s.Trajectories.Save); err != nil {
			return err
		}
	}
	if *jsonFilename != "" {
		if err := store(*jsonFilename, s.Trajectories.WriteJSON); err != nil {
			return err
		}
	}
	if *dumpFilename != "" {
		if err := store(*dumpFilename, func(w io.Writer) error {
			s.DumpAbnormal(w)
			return nil
		}); err != nil {
			return err
		}
	}

	fmt.Printf("%d flights: %d landed, %d abnormal, %d failed; %d samples; %d conflict holds, %d reroutes\n",
		len(sc.Flights), s.Stats.Landed, s.Stats.Abnormal, s.Stats.Failed, s.Stats.Samples,
		s.Stats.CDNREvents, s.Stats.Reroutes)
	return nil
}

func loadCheckpoint(s *sim.Sim, url string) error {
	r, err := storage.OpenRead(context.Background(), url)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := s.LoadCheckpoint(r); err != nil {
		return fmt.Errorf("%s: %w", url, err)
	}
	return nil
}
