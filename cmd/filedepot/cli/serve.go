package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/filedepot/filedepot/internal/config"
	"github.com/filedepot/filedepot/pkg/filestore"
	"github.com/filedepot/filedepot/pkg/handler"
	"github.com/filedepot/filedepot/pkg/server"
)

// Run is the program entry point: parse flags, build the stack, start the
// server and hand control to the admin console.
func Run() {
	ParseFlags()

	if Flags.ShowVersion {
		PrintVersion()
		return
	}

	SetupLogger()

	srv, h, err := buildServer()
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to build the server")
	}

	if Flags.ExposeMetrics {
		SetupMetrics(h)
	}

	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("unable to start the server")
	}

	go handleSignals(srv)

	RunConsole(srv, os.Stdin, os.Stdout)
}

// loadSettings merges the settings file with the command line. Flags that
// were given explicitly win over file values.
func loadSettings() (config.Settings, error) {
	settings := config.Default()
	if Flags.ConfigPath != "" {
		loaded, err := config.Load(Flags.ConfigPath)
		if err != nil {
			return config.Settings{}, err
		}
		settings = loaded
	}

	if flagsSet["host"] || Flags.ConfigPath == "" {
		settings.Host = Flags.Host
	}
	if flagsSet["port"] || Flags.ConfigPath == "" {
		settings.Port = Flags.Port
	}
	if flagsSet["dir"] || Flags.ConfigPath == "" {
		settings.FilesDir = Flags.FilesDir
	}
	if flagsSet["metadata"] || Flags.ConfigPath == "" {
		settings.MetadataPath = Flags.MetadataPath
	}
	if flagsSet["templates"] {
		settings.TemplatesPath = Flags.TemplatesPath
	}
	return settings, settings.Validate()
}

func buildServer() (*server.Server, *handler.Handler, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	templates, err := config.LoadTemplates(settings.TemplatesPath)
	if err != nil {
		return nil, nil, err
	}

	store, err := filestore.Open(
		settings.FilesDir,
		settings.MetadataPath,
		settings.MetadataIDKey,
		settings.MetadataDataKey,
		logger,
	)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().
		Str("dir", settings.FilesDir).
		Str("metadata", settings.MetadataPath).
		Msg("using directory storage")

	h := handler.NewHandler(store, handler.Config{
		Version:    settings.HTTPVersion,
		ServerName: settings.ServerName,
		Logger:     logger,
	})

	endpoints := make(map[string]server.Endpoint, len(templates))
	for root, table := range templates {
		endpoints[root] = server.Endpoint{
			Router: handler.NewRouter(h, table),
			Close:  store.Flush,
		}
	}

	srv := server.New(server.Config{
		Host:           settings.Host,
		Port:           settings.Port,
		Version:        settings.HTTPVersion,
		ServerName:     settings.ServerName,
		NetworkTimeout: Flags.NetworkTimeout,
		Logger:         logger,
	}, endpoints)
	return srv, h, nil
}

// handleSignals flushes and stops the server on SIGINT or SIGTERM.
func handleSignals(srv *server.Server) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	<-signals

	logger.Info().Msg("signal received, shutting down")
	if srv.Running() {
		if err := srv.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
			os.Exit(1)
		}
	}
	os.Exit(0)
}
