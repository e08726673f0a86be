package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var rootCmd = &cobra.Command{
	Use:          "icpac-cdi",
	Short:        "Publish ICPAC Combined Drought Indicator rasters to HDX",
	SilenceUsage: true,
}

func main() {
	goflags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(goflags)
	rootCmd.PersistentFlags().AddGoFlagSet(goflags)

	rootCmd.AddCommand(runCmd, serveCmd)

	err := rootCmd.Execute()
	klog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
