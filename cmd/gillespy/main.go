package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gillespy-xyz/go-gillespy/hybrid"
	"github.com/gillespy-xyz/go-gillespy/model"
	"github.com/gillespy-xyz/go-gillespy/plotter"
	"github.com/gillespy-xyz/go-gillespy/results"
	"github.com/gillespy-xyz/go-gillespy/sim"
	"github.com/gillespy-xyz/go-gillespy/solver"
	"github.com/gillespy-xyz/go-gillespy/ssa"
	"github.com/gillespy-xyz/go-gillespy/tauleap"
)

var (
	storePath    string
	solverName   string
	endTime      float64
	increment    float64
	trajectories int
	seed         int64
	tauTol       float64
	switchTol    float64
	timeout      time.Duration
	debug        bool
	outJSON      string
	species      []string
	asciiPlot    bool
	svgOut       string
	plotWidth    float64
	plotHeight   float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gillespy",
		Short: "stochastic simulation of biochemical reaction networks",
	}
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "gillespy.db", "results database path")

	runCmd := &cobra.Command{
		Use:   "run [model.yaml]",
		Short: "simulate a model",
		Args:  cobra.ExactArgs(1),
		RunE:  runModel,
	}
	runCmd.Flags().StringVar(&solverName, "solver", "ssa", "solver: ssa, tau-leaping, hybrid, ode")
	runCmd.Flags().Float64Var(&endTime, "end", 20, "simulated end time")
	runCmd.Flags().Float64Var(&increment, "increment", 0.05, "save-point spacing")
	runCmd.Flags().IntVar(&trajectories, "trajectories", 1, "number of trajectories")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = from clock)")
	runCmd.Flags().Float64Var(&tauTol, "tau-tol", sim.DefaultTauTol, "tau selection tolerance")
	runCmd.Flags().Float64Var(&switchTol, "switch-tol", 0, "hybrid switching tolerance override")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "wall-clock limit (e.g. 30s)")
	runCmd.Flags().BoolVar(&debug, "debug", false, "record per-step traces")
	runCmd.Flags().StringVar(&outJSON, "out", "", "also write results to a JSON file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&species, "species", nil, "species to plot (default all)")
	plotCmd.Flags().BoolVar(&asciiPlot, "ascii", false, "render to the terminal instead of SVG")
	plotCmd.Flags().StringVar(&svgOut, "svg", "plot.svg", "SVG output path")
	plotCmd.Flags().Float64Var(&plotWidth, "width", 800, "plot width")
	plotCmd.Flags().Float64Var(&plotHeight, "height", 500, "plot height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as CSV of the ensemble mean",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	validateCmd := &cobra.Command{
		Use:   "validate [model.yaml]",
		Short: "parse and compile a model without running it",
		Args:  cobra.ExactArgs(1),
		RunE:  validateModel,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, validateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runModel(cmd *cobra.Command, args []string) error {
	m, err := model.Load(args[0])
	if err != nil {
		return err
	}

	cfg := sim.Config{
		EndTime:      endTime,
		Increment:    increment,
		Trajectories: trajectories,
		Seed:         seed,
		TauTol:       tauTol,
		SwitchTol:    switchTol,
		Timeout:      timeout,
		Debug:        debug,
	}

	ctx := context.Background()
	var ens *results.Ensemble
	switch solverName {
	case ssa.Name:
		ens, err = ssa.Run(ctx, m, cfg)
	case tauleap.Name:
		ens, err = tauleap.Run(ctx, m, cfg)
	case hybrid.Name:
		ens, err = hybrid.Run(ctx, m, cfg)
	case "ode":
		ens, err = solver.Run(ctx, m, cfg, nil, nil)
	default:
		return fmt.Errorf("unknown solver %q", solverName)
	}
	if err != nil {
		return err
	}

	store, err := results.OpenStore(storePath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SaveEnsemble(ens); err != nil {
		return err
	}

	if outJSON != "" {
		if err := results.WriteJSON(ens, outJSON); err != nil {
			return err
		}
	}

	fmt.Printf("run id: %s\n", ens.RunID)
	fmt.Printf("status: %s\n", ens.Status)
	fmt.Printf("trajectories: %d\n", len(ens.Trajectories))
	fmt.Printf("compute time: %.3fs\n", ens.ComputeTime)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	store, err := results.OpenStore(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tSOLVER\tSTATUS\tTRAJ\tTIME")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.RunID, r.Model, r.Solver, r.Status, r.Trajectories,
			r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store, err := results.OpenStore(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ens, err := store.LoadEnsemble(args[0])
	if err != nil {
		return err
	}

	if asciiPlot {
		out, err := plotter.AsciiMean(ens, species, 12, 80)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	svg := plotter.PlotEnsemble(ens, species, plotWidth, plotHeight)
	if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgOut)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	store, err := results.OpenStore(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ens, err := store.LoadEnsemble(args[0])
	if err != nil {
		return err
	}
	mean, err := ens.Mean()
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	header := append([]string{"time"}, mean.Species...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, tp := range mean.Time {
		row := []string{strconv.FormatFloat(tp, 'f', 6, 64)}
		for _, name := range mean.Species {
			row = append(row, strconv.FormatFloat(mean.Values[name][i], 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func validateModel(cmd *cobra.Command, args []string) error {
	m, err := model.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("model: %s\n", m.Name)
	fmt.Printf("species: %d\n", len(m.Species))
	fmt.Printf("parameters: %d\n", len(m.Parameters))
	fmt.Printf("reactions: %d\n", len(m.Reactions))
	fmt.Printf("rate rules: %d\n", len(m.RateRules))
	return nil
}
