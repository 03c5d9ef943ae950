package main

import (
	"fmt"
	"io"

	hcaldigi "github.com/jmbenlloch/hcaldigi_go/pkg"
	"github.com/spf13/cobra"
)

type pulseOptions struct {
	shape     string
	rise      float64
	fall      float64
	t0        float64
	amplitude float64
	from      float64
	to        float64
	step      float64
}

func newPulseCmd() *cobra.Command {
	defaults := hcaldigi.DefaultHgcrocParameters()
	opts := pulseOptions{}

	cmd := &cobra.Command{
		Use:   "pulse",
		Short: "Tabulate the analog pulse of one contribution",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return tabulatePulse(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.shape, "shape", string(defaults.PulseShape), "pulse family: bimoid|expo")
	cmd.Flags().Float64Var(&opts.rise, "rise", defaults.RiseTime, "rise time [ns]")
	cmd.Flags().Float64Var(&opts.fall, "fall", defaults.FallTime, "fall time [ns]")
	cmd.Flags().Float64Var(&opts.t0, "t0", 0, "pulse start [ns]")
	cmd.Flags().Float64Var(&opts.amplitude, "amplitude", 1, "peak amplitude [mV]")
	cmd.Flags().Float64Var(&opts.from, "from", -10, "first time [ns]")
	cmd.Flags().Float64Var(&opts.to, "to", 150, "last time [ns]")
	cmd.Flags().Float64Var(&opts.step, "step", 1, "time step [ns]")
	return cmd
}

func tabulatePulse(w io.Writer, opts pulseOptions) error {
	if opts.step <= 0 {
		return fmt.Errorf("step must be positive, got %g", opts.step)
	}
	factory, err := hcaldigi.NewPulseFactory(hcaldigi.PulseFamily(opts.shape), opts.rise, opts.fall)
	if err != nil {
		return err
	}
	pulse := factory.New(opts.t0, opts.amplitude)

	fmt.Fprintf(w, "# %s peak %.4g mV at %.4g ns\n", opts.shape, pulse.Max(), pulse.PeakTime())
	fmt.Fprintln(w, "# t[ns] value[mV] integral[mV ns]")
	for t := opts.from; t <= opts.to; t += opts.step {
		fmt.Fprintf(w, "%.3f %.6g %.6g\n", t, pulse.Eval(t), pulse.Integrate(opts.from, t))
	}
	return nil
}
