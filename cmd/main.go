package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/edp1096/toy-powerflow/internal/consts"
	"github.com/edp1096/toy-powerflow/pkg/casefile"
	"github.com/edp1096/toy-powerflow/pkg/solver"
	"github.com/edp1096/toy-powerflow/pkg/system"
	"github.com/edp1096/toy-powerflow/pkg/util"
)

var (
	debugFlag   = flag.Bool("debug", false, "enable debug logging")
	maxIterFlag = flag.Int("maxiter", 100, "Newton iteration cap")
	tolFlag     = flag.Float64("tol", 1e-8, "residual tolerance (pu)")
	verboseFlag = flag.Bool("v", false, "print the assembled system summary")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("Usage: powerflow [-debug] [-maxiter n] [-tol eps] <case_file.yaml>")
	}

	level := slog.LevelInfo
	if *debugFlag {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// 1. Load case and assemble system
	sys, err := casefile.BuildSystem(flag.Arg(0))
	if err != nil {
		log.Fatalf("Error building system: %v", err)
	}
	if *verboseFlag {
		fmt.Println(sys.DAE().Summary())
	}

	// 2. Solve power flow
	opt := solver.Options{MaxIter: *maxIterFlag, Tol: *tolFlag}
	sol, err := sys.Solve(opt)
	if err != nil {
		log.Fatalf("Power flow failed: %v", err)
	}

	// 3. Print result
	printResults(sys, sol)
}

func printResults(sys *system.System, sol *system.Solution) {
	fmt.Printf("\nPower Flow Results: %s\n", sys.Name())
	fmt.Println("========================")
	fmt.Printf("Converged in %d iterations, residual %.3e\n", sol.Stats.Iterations, sol.Stats.Residual)

	angles, err := sol.Get("Bus", "a")
	if err != nil {
		log.Fatalf("Error reading bus angles: %v", err)
	}
	mags, err := sol.Get("Bus", "v")
	if err != nil {
		log.Fatalf("Error reading bus magnitudes: %v", err)
	}

	fmt.Println("\nBus Voltages:")
	for i, name := range sys.Bus.Names {
		fmt.Printf("%-12s %s %s  %s\n", name,
			util.FormatPerUnit(mags[i]),
			util.FormatAngleDeg(angles[i]),
			util.FormatVoltage(mags[i], sys.Bus.Vn[i]))
	}

	if sys.PV.Count() > 0 {
		q, err := sol.Get("PV", "q")
		if err != nil {
			log.Fatalf("Error reading PV outputs: %v", err)
		}
		fmt.Println("\nPV Generators:")
		for i, name := range sys.PV.Names {
			fmt.Printf("%-12s P=%s  Q=%s\n", name,
				util.FormatPower(sys.PV.P0[i], consts.BASEMVA),
				util.FormatPower(q[i], consts.BASEMVA))
		}
	}

	if sys.Slack.Count() > 0 {
		p, err := sol.Get("Slack", "p")
		if err != nil {
			log.Fatalf("Error reading slack outputs: %v", err)
		}
		q, err := sol.Get("Slack", "q")
		if err != nil {
			log.Fatalf("Error reading slack outputs: %v", err)
		}
		fmt.Println("\nSlack Generators:")
		for i, name := range sys.Slack.Names {
			fmt.Printf("%-12s P=%s  Q=%s\n", name,
				util.FormatPower(p[i], consts.BASEMVA),
				util.FormatPower(q[i], consts.BASEMVA))
		}
	}
}
