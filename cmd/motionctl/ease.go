package main

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/motionbridge/internal/motion/tween"
)

func newEaseCmd() *cobra.Command {
	var (
		samples int
		height  int
	)
	cmd := &cobra.Command{
		Use:   "ease [name]",
		Short: "plot an easing curve, or list easings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(out, strings.Join(tween.Easings(), "\n"))
				return nil
			}
			graph, err := plotEase(args[0], samples, height)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, graph)
			return nil
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 60, "points sampled over [0, 1]")
	cmd.Flags().IntVar(&height, "height", 12, "plot height")
	return cmd
}

// plotEase samples the named easing at evenly spaced progress values.
func plotEase(name string, samples, height int) (string, error) {
	ease, err := tween.LookupEase(name)
	if err != nil {
		return "", err
	}
	if samples < 2 {
		return "", fmt.Errorf("need at least 2 samples, got %d", samples)
	}
	data := make([]float64, samples)
	for i := range data {
		data[i] = ease(float64(i) / float64(samples-1))
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(samples),
		asciigraph.Caption(name),
	), nil
}
