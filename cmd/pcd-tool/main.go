package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pcdtool/pkg/convert"
	"pcdtool/pkg/geom"
	"pcdtool/pkg/pcd"
	"pcdtool/pkg/velodyne"
)

var cfg struct {
	in            string
	out           string
	from          string
	to            string
	model         string
	mode          string
	transformFile string
	transform     string
	start         string
	end           string
}

var rootCmd = &cobra.Command{
	Use:           "pcd-tool",
	Short:         "convert and inspect point cloud files",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "convert between point cloud storage formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := buildOptions()
		if err != nil {
			return err
		}
		return convert.Convert(cfg.in, cfg.out, opts)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info FILE",
	Short: "print the header and field layout of a PCD file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(args[0])
	},
}

func init() {
	convertCmd.Flags().StringVarP(&cfg.in, "input", "i", "", "input file or directory")
	convertCmd.Flags().StringVarP(&cfg.out, "output", "o", "", "output file or directory")
	convertCmd.Flags().StringVarP(&cfg.from, "from", "f", "", "input format (pcd.libpcl, pcd.newslab, pcap.velodyne, raw.bin)")
	convertCmd.Flags().StringVarP(&cfg.to, "to", "t", "", "output format (pcd.libpcl, pcd.newslab, raw.bin)")
	convertCmd.Flags().StringVar(&cfg.model, "velodyne-model", "", "sensor model for pcap inputs (vlp16, puck-lite, puck-hires, vlp32c)")
	convertCmd.Flags().StringVar(&cfg.mode, "velodyne-return-mode", "", "sensor return mode for pcap inputs (strongest, last, dual)")
	convertCmd.Flags().StringVar(&cfg.transformFile, "transform-file", "", "YAML transform spec file applied to every point")
	convertCmd.Flags().StringVar(&cfg.transform, "transform", "", "inline YAML transform spec applied to every point")
	convertCmd.Flags().StringVar(&cfg.start, "start", "", "first frame: N from the front, -N from the end")
	convertCmd.Flags().StringVar(&cfg.end, "end", "", "last frame: N from the front, -N from the end, +N frames from start")
	convertCmd.MarkFlagRequired("input")
	convertCmd.MarkFlagRequired("output")
	convertCmd.MarkFlagsMutuallyExclusive("transform-file", "transform")

	rootCmd.AddCommand(convertCmd, infoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pcd-tool:", err)
		os.Exit(1)
	}
}

func buildOptions() (convert.Options, error) {
	var opts convert.Options
	var err error

	if cfg.from != "" {
		if opts.From, err = convert.ParseFormat(cfg.from); err != nil {
			return opts, err
		}
	}
	if cfg.to != "" {
		if opts.To, err = convert.ParseFormat(cfg.to); err != nil {
			return opts, err
		}
	}
	if cfg.model != "" {
		if opts.Model, err = velodyne.ParseProductID(cfg.model); err != nil {
			return opts, err
		}
	}
	if cfg.mode != "" {
		if opts.Mode, err = velodyne.ParseReturnMode(cfg.mode); err != nil {
			return opts, err
		}
	}
	switch {
	case cfg.transformFile != "":
		if opts.Transform, err = geom.LoadTransformSpec(cfg.transformFile); err != nil {
			return opts, err
		}
	case cfg.transform != "":
		if opts.Transform, err = geom.ParseTransformSpec([]byte(cfg.transform)); err != nil {
			return opts, err
		}
	}
	if opts.Start, err = convert.ParseStartBound(cfg.start); err != nil {
		return opts, err
	}
	if opts.End, err = convert.ParseEndBound(cfg.end); err != nil {
		return opts, err
	}
	return opts, nil
}

func runInfo(path string) error {
	if f := convert.GuessFormat(path); f != convert.GenericPCD && f != convert.NewslabPCD {
		return fmt.Errorf("info expects a .pcd file, got %q", path)
	}
	r, err := pcd.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	h := r.Header()
	fmt.Printf("%s: %d points (%dx%d), %s data\n", path, h.Points, h.Width, h.Height, h.Data)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tTYPE\tSIZE\tCOUNT")
	for _, f := range h.Schema {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", f.Name, f.Kind.TypeChar(), f.Kind.Size(), f.Count)
	}
	return w.Flush()
}
