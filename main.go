package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/evrgb/evfuse/cmd"
	"github.com/evrgb/evfuse/internal/api"
	"github.com/evrgb/evfuse/internal/combo"
	"github.com/evrgb/evfuse/internal/config"
	"github.com/evrgb/evfuse/internal/device"
	"github.com/evrgb/evfuse/internal/events"
	"github.com/evrgb/evfuse/internal/logging"
	"github.com/evrgb/evfuse/internal/metrics"
	"github.com/evrgb/evfuse/internal/recorder"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Pipeline settings
	TuningConfigFile  string `help:"Pipeline tuning file (hot-reloaded)" default:"fuse.toml" toml:"fuse.config_file" env:"FUSE_CONFIG_FILE"`
	FrameQueueSize    int    `help:"Bounded frame queue capacity" default:"10" toml:"fuse.frame_queue_size" env:"FUSE_FRAME_QUEUE_SIZE"`
	TriggerBufferSize int    `help:"Trigger pair buffer capacity" default:"100" toml:"fuse.trigger_buffer_size" env:"FUSE_TRIGGER_BUFFER_SIZE"`
	DispatchQueueSize int    `help:"Dispatch queue capacity" default:"16" toml:"fuse.dispatch_queue_size" env:"FUSE_DISPATCH_QUEUE_SIZE"`
	Arrangement       string `help:"Camera arrangement (stereo, beam_splitter)" default:"stereo" toml:"fuse.arrangement" env:"FUSE_ARRANGEMENT"`
	RGBSerial         string `help:"RGB camera serial" default:"" toml:"fuse.rgb_serial" env:"FUSE_RGB_SERIAL"`
	DVSSerial         string `help:"DVS camera serial" default:"" toml:"fuse.dvs_serial" env:"FUSE_DVS_SERIAL"`
	MetadataFile      string `help:"Session metadata file, applied at startup when present" default:"" toml:"fuse.metadata_file" env:"FUSE_METADATA_FILE"`
	AutoStart         bool   `help:"Start the pipeline at boot" default:"true" toml:"fuse.auto_start" env:"FUSE_AUTO_START"`

	// Simulator settings (used until real camera drivers are attached)
	SimFrameIntervalMs int `help:"Simulated frame period in milliseconds" default:"33" toml:"sim.frame_interval_ms" env:"SIM_FRAME_INTERVAL_MS"`
	SimEventRate       int `help:"Simulated DVS events per second" default:"50000" toml:"sim.event_rate" env:"SIM_EVENT_RATE"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingTrigger  string `help:"Trigger buffer logging level" default:"info" toml:"logging.trigger" env:"LOGGING_TRIGGER"`
	LoggingPipeline string `help:"Pipeline logging level" default:"info" toml:"logging.pipeline" env:"LOGGING_PIPELINE"`
	LoggingCombo    string `help:"Session logging level" default:"info" toml:"logging.combo" env:"LOGGING_COMBO"`
	LoggingDevice   string `help:"Device logging level" default:"info" toml:"logging.device" env:"LOGGING_DEVICE"`
	LoggingRecorder string `help:"Recorder logging level" default:"info" toml:"logging.recorder" env:"LOGGING_RECORDER"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"trigger":  opts.LoggingTrigger,
				"pipeline": opts.LoggingPipeline,
				"combo":    opts.LoggingCombo,
				"device":   opts.LoggingDevice,
				"recorder": opts.LoggingRecorder,
				"api":      opts.LoggingAPI,
			},
		})

		logger := logging.GetLogger("main")

		// Event bus for in-process event handling
		eventBus := events.New()

		// Forward log entries to SSE subscribers
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		pipelineMetrics := metrics.NewPipeline()

		// Tuning file overrides the flat options when present
		tuning, tuningErr := config.LoadTuning(opts.TuningConfigFile)
		if tuningErr != nil {
			logger.Warn("Failed to load tuning config, using flag values", "error", tuningErr)
			tuning = config.Tuning{
				FrameQueueSize:    opts.FrameQueueSize,
				TriggerBufferSize: opts.TriggerBufferSize,
				DispatchQueueSize: opts.DispatchQueueSize,
			}
		}

		// The simulator stands in for the camera drivers; it implements all
		// three source interfaces on one synthetic clock.
		sim := device.NewSimulator(device.SimOptions{
			FrameInterval: time.Duration(opts.SimFrameIntervalMs) * time.Millisecond,
			EventRate:     opts.SimEventRate,
			Logger:        logging.GetLogger("device"),
		})

		fusion := combo.New(combo.Options{
			FrameSource:       sim,
			EventSource:       sim,
			TriggerSource:     sim,
			FrameQueueSize:    tuning.FrameQueueSize,
			TriggerBufferSize: tuning.TriggerBufferSize,
			DispatchQueueSize: tuning.DispatchQueueSize,
			RGBSerial:         opts.RGBSerial,
			DVSSerial:         opts.DVSSerial,
			Arrangement:       combo.ArrangementFromString(opts.Arrangement),
			Logger:            logging.GetLogger("combo"),
			Metrics:           pipelineMetrics,
			Bus:               eventBus,
		})

		if opts.MetadataFile != "" {
			if metaErr := fusion.LoadMetadata(opts.MetadataFile); metaErr != nil {
				logger.Warn("Failed to load session metadata", "path", opts.MetadataFile, "error", metaErr)
			}
		}

		sessionRecorder := recorder.New(logging.GetLogger("recorder"), eventBus)

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Combo:             fusion,
			Recorder:          sessionRecorder,
			EventBus:          eventBus,
			PrometheusHandler: pipelineMetrics.Handler(),
		})

		// Hot-reload queue capacities when the tuning file changes
		var tuningWatcher *config.Watcher[config.Tuning]
		if opts.TuningConfigFile != "" {
			tuningWatcher = config.NewConfigWatcher(
				opts.TuningConfigFile,
				config.LoadTuning,
				logging.GetLogger("config"),
			)
			tuningWatcher.OnReload(func(t config.Tuning) {
				logger.Info("Applying reloaded tuning",
					"frame_queue_size", t.FrameQueueSize,
					"trigger_buffer_size", t.TriggerBufferSize)
				fusion.FrameQueue().SetMaxSize(t.FrameQueueSize)
				fusion.TriggerBuffer().SetMaxSize(t.TriggerBufferSize)
			})
		}

		hooks.OnStart(func() {
			if opts.AutoStart {
				if !fusion.Start() {
					logger.Error("Failed to start fusion pipeline")
					os.Exit(1)
				}
			}

			if tuningWatcher != nil {
				if watchErr := tuningWatcher.Start(); watchErr != nil {
					// Missing file is expected on fresh installs
					logger.Debug("Tuning watcher not started", "error", watchErr)
					tuningWatcher = nil
				}
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			if tuningWatcher != nil {
				if stopErr := tuningWatcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping tuning watcher", "error", stopErr)
				}
			}

			if fusion.Running() {
				fusion.Stop()
			}
			sessionRecorder.Stop()
		})
	})

	cli.Root().AddCommand(cmd.CreateSimulateCmd())
	cli.Root().AddCommand(cmd.CreateValidateConfigCmd())

	cli.Run()
}
