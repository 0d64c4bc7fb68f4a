// Package cmd holds the auxiliary cobra commands added to the humacli root.
package cmd

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/evrgb/evfuse/internal/combo"
	"github.com/evrgb/evfuse/internal/device"
	"github.com/evrgb/evfuse/internal/events"
	"github.com/evrgb/evfuse/internal/logging"
	"github.com/evrgb/evfuse/internal/metrics"
	"github.com/evrgb/evfuse/internal/recorder"
	"github.com/evrgb/evfuse/internal/types"
)

// CreateSimulateCmd creates the simulate command. It runs the full fusion
// pipeline against the simulated device pair for a fixed duration,
// optionally recording the output, and prints a summary. Useful for
// smoke-testing a deployment without camera hardware.
func CreateSimulateCmd() *cobra.Command {
	var duration time.Duration
	var outputDir string
	var eventRate int
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the fusion pipeline against simulated cameras",
		Long: `Drives the synchronizer with a simulated RGB+DVS device pair for the ` +
			`given duration. With --output-dir the synchronized samples are recorded ` +
			`to CSV exactly as with real hardware.`,
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := logging.Config{
				Level:  "info",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("simulate")

			bus := events.New()
			m := metrics.NewPipeline()
			sim := device.NewSimulator(device.SimOptions{
				EventRate: eventRate,
				Logger:    logging.GetLogger("device"),
			})

			c := combo.New(combo.Options{
				FrameSource:   sim,
				EventSource:   sim,
				TriggerSource: sim,
				RGBSerial:     "sim-rgb",
				DVSSerial:     "sim-dvs",
				Logger:        logging.GetLogger("combo"),
				Metrics:       m,
				Bus:           bus,
			})

			var samples, eventsTotal atomic.Uint64
			c.SetSyncedCallback(func(_ types.FrameWithTimestamps, evs []types.Event) {
				samples.Add(1)
				eventsTotal.Add(uint64(len(evs)))
			})

			if outputDir != "" {
				rec := recorder.New(logging.GetLogger("recorder"), bus)
				if !rec.Start(recorder.Config{OutputDir: outputDir, Metadata: c.Metadata()}) {
					logger.Error("Failed to start recording", "output_dir", outputDir)
					os.Exit(1)
				}
				c.SetRecorder(rec)
			}

			if !c.Start() {
				logger.Error("Failed to start pipeline")
				os.Exit(1)
			}

			time.Sleep(duration)
			c.Stop()

			fmt.Printf("simulated %s: %d synchronized samples, %d events\n",
				duration, samples.Load(), eventsTotal.Load())
			if outputDir != "" {
				fmt.Printf("recording written to %s\n", outputDir)
			}
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 3*time.Second, "How long to run the simulation")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Record synchronized samples to this directory")
	cmd.Flags().IntVar(&eventRate, "event-rate", 50000, "Simulated DVS events per second")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")

	return cmd
}
