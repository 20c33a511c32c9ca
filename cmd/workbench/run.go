package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/skekre98/workbench/actuator"
	"github.com/skekre98/workbench/appdata"
	"github.com/skekre98/workbench/command"
	"github.com/skekre98/workbench/config"
	"github.com/skekre98/workbench/connection"
	"github.com/skekre98/workbench/core"
	"github.com/skekre98/workbench/keybinding"
	"github.com/skekre98/workbench/logging"
	"github.com/skekre98/workbench/menu"
	"github.com/skekre98/workbench/preferences"
	"github.com/skekre98/workbench/reporter"
	"github.com/skekre98/workbench/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect and run the workbench until the window closes",
	RunE:  runWorkbench,
}

func init() {
	runCmd.Flags().String("kind", "", "Connection kind: direct, native or web (default from config)")
	runCmd.Flags().Bool("watch", true, "Reload configuration when application.yaml changes")
	rootCmd.AddCommand(runCmd)
}

// stdio is the direct channel: framed messages on stdin/stdout.
type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error { return os.Stdin.Close() }

func runWorkbench(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	watch, _ := cmd.Flags().GetBool("watch")

	mgr, root, err := loadConfig(ctx, cmd, config.Options{AutoReload: watch})
	if err != nil {
		return err
	}
	defer mgr.Close()

	logs := logging.NewManager(root.Logging.Level, root.Logging.Format, os.Stderr)
	logger := logs.Root().With(
		slog.String("app", root.App.Name),
		slog.String("version", root.App.Version),
	)
	stopLevels := followLogLevel(mgr, logs)
	defer stopLevels()

	kindName, _ := cmd.Flags().GetString("kind")
	if kindName == "" {
		kindName = root.Connection.Kind
	}
	kind, err := connection.ParseKind(kindName)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rep, err := reporter.NewPrometheus(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	app := core.NewApp(logger, appConfig(root),
		command.Module(),
		keybinding.Module(),
		menu.Module(),
		preferences.Module(),
		appdata.Module(),
		web.Module(web.WithQuietPaths(path.Join(root.Actuator.BasePath, "health"))),
		actuator.Module(),
	)

	c := app.Container
	core.Put(c, root)
	core.Put(c, mgr)
	core.Put[core.LoggerProvider](c, logs)
	core.Put[reporter.Service](c, rep)
	core.Put[prometheus.Gatherer](c, reg)
	core.Put(c, &connection.Establisher{
		Dialer: connection.NewSocketIODialer(logger),
		Socket: connection.SocketOptions{
			URL:            app.Config.ConnectionPath,
			Protocols:      app.Config.ConnectionProtocols,
			Multiplex:      app.Config.UseExperimentalMultiChannel,
			ClientID:       app.Config.ClientID,
			ConnectTimeout: root.Connection.ConnectTimeout,
		},
		Native: bridge(c, root, logger),
		Logger: logger,
	})

	var existing connection.Channel
	if kind == connection.KindDirect {
		existing = connection.NewStreamChannel(stdio{Reader: os.Stdin, Writer: os.Stdout}, logger)
	}

	return app.Run(ctx, nil, kind, existing)
}

// bridge registers the native host link when one is configured.
func bridge(c core.Container, root config.Root, logger *slog.Logger) connection.NativeBridge {
	if root.Connection.NativeSocket == "" {
		return nil
	}
	b := &connection.UnixBridge{Path: root.Connection.NativeSocket, Logger: logger}
	core.Put[connection.NativeBridge](c, b)
	core.Put[core.WindowCloser](c, b)
	return b
}

// followLogLevel applies logging.level changes from configuration reloads.
func followLogLevel(mgr *config.Manager, logs *logging.Manager) (stop func()) {
	events := make(chan config.Event, 4)
	mgr.Subscribe(events)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case ev := <-events:
				if !ev.Changed("logging") {
					continue
				}
				if root, ok := ev.NewConfig.(*config.Root); ok {
					logs.SetLevel(root.Logging.Level)
				}
			}
		}
	}()
	return func() {
		mgr.Unsubscribe(events)
		close(done)
	}
}
