// Package main provides the CLI entry point for framegrab.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framegrab/pkg/adapters/filesink"
	"github.com/user/framegrab/pkg/adapters/ggrenderer"
	"github.com/user/framegrab/pkg/adapters/imageexport"
	"github.com/user/framegrab/pkg/adapters/logger"
	"github.com/user/framegrab/pkg/adapters/nullsink"
	"github.com/user/framegrab/pkg/adapters/objectsink"
	"github.com/user/framegrab/pkg/adapters/osfilesystem"
	"github.com/user/framegrab/pkg/adapters/smartdecoder"
	"github.com/user/framegrab/pkg/config"
	"github.com/user/framegrab/pkg/metrics"
	"github.com/user/framegrab/pkg/orchestrator"
	"github.com/user/framegrab/pkg/ports"
	"github.com/user/framegrab/pkg/summarizer"
	"github.com/user/framegrab/pkg/tracing"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "framegrab",
		Usage:           l10n.T("Extract single frames from video files by frame number"),
		Description:     l10n.T("framegrab seeks to the nearest keyframe, decodes forward to the requested frame and writes it as an image."),
		Version:         version,
		HideVersion:     true,
		HideHelpCommand: true,
		Commands: []*cli.Command{
			extractCommand(),
			keyframesCommand(),
			indexCommand(),
			versionCommand(),
		},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: l10n.T("Configuration")},
		&cli.StringFlag{Name: "ffmpeg-path", Usage: l10n.T("Path to the ffmpeg executable"), Category: l10n.T("Decoding")},
		&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: l10n.T("Log level (debug, info, warn, error)"), Category: l10n.T("Logging")},
		&cli.StringFlag{Name: "log-format", Usage: l10n.T("Log format (console, json)"), Category: l10n.T("Logging")},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: l10n.T("Suppress all log output"), Category: l10n.T("Logging")},
	}
}

func extractCommand() *cli.Command {
	flags := append(commonFlags(),
		&cli.StringFlag{Name: "frames", Aliases: []string{"f"}, Usage: l10n.T("Frame numbers to extract, e.g. 0,30,100-110"), Category: l10n.T("Extraction")},
		&cli.StringFlag{Name: "format", Usage: l10n.T("Image formats (ppm, png, jpeg, bmp, tiff), comma separated"), Category: l10n.T("Extraction")},
		&cli.StringFlag{Name: "strategy", Usage: l10n.T("Addressing strategy (auto, index, estimate)"), Category: l10n.T("Extraction")},
		&cli.IntFlag{Name: "max-packets", Usage: l10n.T("Packets to read per frame before giving up (0 = unlimited)"), Category: l10n.T("Extraction")},
		&cli.BoolFlag{Name: "continue-on-error", Usage: l10n.T("Keep extracting after a failed frame"), Category: l10n.T("Extraction")},
		&cli.IntFlag{Name: "quality", Usage: l10n.T("JPEG quality (1-100)"), Category: l10n.T("Image")},
		&cli.IntFlag{Name: "scale", Usage: l10n.T("Scale images to this width, keeping the aspect ratio"), Category: l10n.T("Image")},
		&cli.BoolFlag{Name: "stamp", Usage: l10n.T("Draw the frame number and timestamp on each image"), Category: l10n.T("Image")},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: l10n.T("Output kind (dir, s3, discard)"), Category: l10n.T("Output")},
		&cli.StringFlag{Name: "summary", Usage: l10n.T("Output execution summary to file (Markdown format)"), Category: l10n.T("Output")},
		&cli.StringFlag{Name: "metrics-file", Usage: l10n.T("Write Prometheus metrics to this file after the run"), Category: l10n.T("Observability")},
		&cli.StringFlag{Name: "otlp-endpoint", Usage: l10n.T("OTLP/HTTP endpoint for traces, e.g. http://localhost:4318/v1/traces"), Category: l10n.T("Observability")},
	)
	return &cli.Command{
		Name:      "extract",
		Usage:     l10n.T("Extract frames as images"),
		ArgsUsage: "<input> [<frame>] [<outdir>]",
		Flags:     flags,
		Action:    runExtract,
	}
}

func keyframesCommand() *cli.Command {
	return &cli.Command{
		Name:      "keyframes",
		Usage:     l10n.T("List the keyframes of the video stream"),
		ArgsUsage: "<input>",
		Flags:     commonFlags(),
		Action:    runKeyframes,
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     l10n.T("Show streams and the frame index"),
		ArgsUsage: "<input>",
		Flags:     commonFlags(),
		Action:    runIndex,
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, l10n.F("framegrab version %s", version))
			return nil
		},
	}
}

// loadConfig layers the config file, the environment and the flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}

	if c.IsSet("ffmpeg-path") {
		cfg.FFmpegPath = c.String("ffmpeg-path")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.Bool("quiet") {
		cfg.LogLevel = ports.LevelQuiet.String()
	}
	if c.IsSet("format") {
		cfg.Formats = []string{c.String("format")}
	}
	if c.IsSet("strategy") {
		cfg.Strategy = c.String("strategy")
	}
	if c.IsSet("max-packets") {
		cfg.MaxPackets = c.Int("max-packets")
	}
	if c.IsSet("continue-on-error") {
		cfg.ContinueOnError = c.Bool("continue-on-error")
	}
	if c.IsSet("quality") {
		cfg.Quality = c.Int("quality")
	}
	if c.IsSet("scale") {
		cfg.Width = c.Int("scale")
	}
	if c.IsSet("stamp") {
		cfg.Stamp.Enabled = c.Bool("stamp")
	}
	if c.IsSet("output") {
		cfg.Output.Kind = c.String("output")
	}
	if c.IsSet("summary") {
		cfg.SummaryFile = c.String("summary")
	}
	if c.IsSet("metrics-file") {
		cfg.MetricsFile = c.String("metrics-file")
	}
	if c.IsSet("otlp-endpoint") {
		cfg.OTLPEndpoint = c.String("otlp-endpoint")
	}
	if c.IsSet("frames") {
		frames, err := parseFrames(c.String("frames"))
		if err != nil {
			return cfg, err
		}
		cfg.Frames = frames
	}
	return cfg, nil
}

// newLogger returns the configured logger and a function flushing it.
func newLogger(cfg config.Config, w io.Writer) (ports.Logger, func()) {
	level := ports.ParseLogLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		z := logger.NewZap(level, w)
		return z, func() { _ = z.Sync() }
	}
	if level == ports.LevelQuiet {
		return logger.NewNoop(), func() {}
	}
	return logger.NewConsole(level), func() {}
}

func newSink(cfg config.Config, fs ports.FileSystem) (ports.FrameSink, string, error) {
	switch cfg.Output.Kind {
	case config.OutputS3:
		sink, err := objectsink.New(objectsink.Config{
			Endpoint:  cfg.Output.Endpoint,
			AccessKey: cfg.Output.AccessKey,
			SecretKey: cfg.Output.SecretKey,
			UseSSL:    cfg.Output.UseSSL,
			Bucket:    cfg.Output.Bucket,
			Prefix:    cfg.Output.Prefix,
		})
		if err != nil {
			return nil, "", err
		}
		return sink, "s3://" + cfg.Output.Bucket + "/" + cfg.Output.Prefix, nil
	case config.OutputDiscard:
		return nullsink.New(), "discard", nil
	default:
		return filesink.New(cfg.Output.Dir, fs), cfg.Output.Dir, nil
	}
}

func runExtract(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	input := c.Args().Get(0)
	if input == "" {
		return errors.New(l10n.T("input argument is required"))
	}
	rest := c.Args().Tail()
	if !c.IsSet("frames") && len(rest) > 0 {
		frames, err := parseFrames(rest[0])
		if err != nil {
			return err
		}
		cfg.Frames = frames
		rest = rest[1:]
	}
	if len(rest) > 0 {
		cfg.Output.Dir = rest[0]
	}
	if len(cfg.Frames) == 0 {
		return errors.New(l10n.T("no frame number given"))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, flush := newLogger(cfg, c.App.ErrWriter)
	defer flush()

	ctx := c.Context
	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint, version)
		if err != nil {
			return err
		}
		defer tp.Shutdown(context.Background())
	}

	fs := osfilesystem.New()
	sink, location, err := newSink(cfg, fs)
	if err != nil {
		return err
	}

	opts := imageexport.Options{
		Quality:    cfg.Quality,
		Width:      cfg.Width,
		Stamp:      cfg.Stamp.Enabled,
		StampStyle: cfg.StampStyle(),
		Logger:     log,
	}
	if cfg.Width > 0 || cfg.Stamp.Enabled {
		opts.Renderer = ggrenderer.New()
	}
	exporter := imageexport.New(sink, opts)

	engine := smartdecoder.New(smartdecoder.Options{FFmpegPath: cfg.FFmpegPath, Logger: log})
	m := metrics.New()
	orch := orchestrator.New(engine, exporter, m, log)

	result, runErr := orch.Run(ctx, cfg.ToOrchestratorConfig(input))

	if cfg.MetricsFile != "" {
		if err := m.WriteToTextfile(cfg.MetricsFile); err != nil {
			log.Error(l10n.F("Failed to write metrics: %s", err))
		} else {
			log.Info(l10n.F("Metrics written to %s", cfg.MetricsFile))
		}
	}
	if cfg.SummaryFile != "" {
		w := summarizer.NewWriter(summarizer.NewMarkdownFormatter(
			summarizer.WithTranslator(func(s string) string { return l10n.T(s) }),
			summarizer.WithVersion(version),
		), fs)
		if err := w.Write(cfg.SummaryFile, buildSummary(cfg, result, location)); err != nil {
			log.Error(l10n.F("Failed to write summary: %s", err))
		} else {
			log.Info(l10n.F("Summary written to %s", cfg.SummaryFile))
		}
	}

	return runErr
}

func runKeyframes(c *cli.Context) error {
	cfg, input, err := inspectSetup(c)
	if err != nil {
		return err
	}
	log, flush := newLogger(cfg, c.App.ErrWriter)
	defer flush()

	engine := smartdecoder.New(smartdecoder.Options{FFmpegPath: cfg.FFmpegPath, Logger: log})
	report, err := orchestrator.New(engine, nil, nil, log).ListKeyframes(c.Context, input)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "position\tpts\tpacket")
	for _, kf := range report.Keyframes {
		fmt.Fprintf(tw, "%d\t%d\t%d\n", kf.Position, kf.PTS, kf.Packet)
	}
	return tw.Flush()
}

func runIndex(c *cli.Context) error {
	cfg, input, err := inspectSetup(c)
	if err != nil {
		return err
	}
	log, flush := newLogger(cfg, c.App.ErrWriter)
	defer flush()

	engine := smartdecoder.New(smartdecoder.Options{FFmpegPath: cfg.FFmpegPath, Logger: log})
	report, err := orchestrator.New(engine, nil, nil, log).Describe(input)
	if err != nil {
		return err
	}

	w := c.App.Writer
	for _, s := range report.Streams {
		fmt.Fprintf(w, "stream %d: %s %s", s.ID, s.Kind, s.Codec)
		if s.Kind == ports.MediaVideo {
			fmt.Fprintf(w, " %dx%d", s.Width, s.Height)
		}
		fmt.Fprintf(w, ", time base %s, %d entries\n", s.TimeBase, s.EntryCount)
	}
	fmt.Fprintf(w, "video stream: %d\n", report.Video.ID)
	fmt.Fprintf(w, "frame rate: %s\n", report.Video.NominalFrameRate)
	fmt.Fprintf(w, "frame duration: %d\n", report.FrameDuration)
	fmt.Fprintf(w, "index entries: %d\n", report.Entries)
	fmt.Fprintf(w, "keyframes: %d\n", report.Keyframes)
	if report.Entries > 0 {
		fmt.Fprintf(w, "timestamps: %d..%d\n", report.FirstTimestamp, report.LastTimestamp)
	}
	strategy := string(report.Strategy)
	if strategy == "" {
		strategy = "none"
	}
	fmt.Fprintf(w, "strategy: %s\n", strategy)
	return nil
}

func inspectSetup(c *cli.Context) (config.Config, string, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return cfg, "", err
	}
	input := c.Args().First()
	if input == "" {
		return cfg, "", errors.New(l10n.T("input argument is required"))
	}
	return cfg, input, nil
}

func buildSummary(cfg config.Config, result orchestrator.RunResult, output string) *summarizer.Summary {
	b := summarizer.NewBuilder().
		WithInput(summarizer.InputInfo{
			Path:         result.Input,
			StreamID:     result.Stream.ID,
			Codec:        result.Stream.Codec,
			Width:        result.Stream.Width,
			Height:       result.Stream.Height,
			TimeBase:     result.Stream.TimeBase.String(),
			FrameRate:    result.Stream.NominalFrameRate.String(),
			IndexEntries: result.IndexEntries,
		}).
		WithSettings(summarizer.Settings{
			Strategy:   string(result.Strategy),
			Formats:    cfg.Formats,
			Quality:    cfg.Quality,
			Width:      cfg.Width,
			Stamp:      cfg.Stamp.Enabled,
			MaxPackets: cfg.MaxPackets,
			Output:     output,
		}).
		WithDuration(result.TotalDurationMs)

	for _, res := range result.Frames {
		info := summarizer.FrameInfo{
			Requested:     res.Frame,
			Ordinal:       res.Ordinal,
			Timestamp:     res.Timestamp,
			Approximate:   res.Approximate,
			PacketsRead:   res.Stats.PacketsRead,
			FramesDecoded: res.Stats.FramesDecoded,
			DurationMs:    int(res.Duration.Milliseconds()),
		}
		if res.Err != nil {
			info.Failed = true
			info.Kind = res.Kind.String()
			info.Error = res.Err.Error()
		}
		for _, img := range res.Images {
			info.Images = append(info.Images, summarizer.ImageInfo{
				Location: img.Location,
				Format:   img.Format.String(),
				Size:     img.Size,
			})
		}
		b.AddFrame(info)
	}
	return b.Build()
}
