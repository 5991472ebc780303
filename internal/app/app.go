package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"orbit-go/internal/blockstore"
	"orbit-go/internal/config"
	"orbit-go/internal/database"
	"orbit-go/internal/fs"
	"orbit-go/internal/orbit"
	"orbit-go/internal/post"
	"orbit-go/internal/storage"
)

// OrbitApp is the application layer between the CLI and the Coordinator.
// It constructs all dependencies from config and tears the session down on
// Close.
type OrbitApp struct {
	cfg     *config.Config
	coord   *orbit.Coordinator
	node    *storage.Node
	logger  orbit.Logger
	op      *Operation
	logFile *os.File
}

// NewOrbitApp creates a fully wired, disconnected OrbitApp from the given
// config. command identifies the CLI command being run (e.g. "send", "chat").
// The caller must call Close when done.
func NewOrbitApp(ctx context.Context, cfg *config.Config, command string) (*OrbitApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := NewOperation(command, time.Now())
	slogger, logFile, err := newLogger(cfg.LogDir, op.ID, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a, err := build(ctx, cfg, logger)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	a.op = op
	a.logFile = logFile
	return a, nil
}

func build(ctx context.Context, cfg *config.Config, logger orbit.Logger) (*OrbitApp, error) {
	patterns := append([]string{}, cfg.Storage.Ignore...)
	filePatterns, err := fs.ParseIgnoreFile(filepath.Join(cfg.BaseDir, fs.IgnoreFileName))
	if err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	ignore := fs.NewIgnoreMatcher(append(patterns, filePatterns...))

	blocks, err := blockstore.NewBlockstoreFromConfig(ctx, cfg.Blockstore)
	if err != nil {
		return nil, fmt.Errorf("creating blockstore: %w", err)
	}

	node, err := storage.NewNode(blocks, cfg.Storage.Peers, ignore)
	if err != nil {
		return nil, fmt.Errorf("creating storage node: %w", err)
	}

	dbCfg := cfg.Database
	if dbCfg.Type == "sqlite" {
		dbCfg.CacheFile = cfg.CacheFile()
	}
	db, err := database.NewDatabaseFromConfig(dbCfg, cfg.Network.Name, logger)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	a := &OrbitApp{cfg: cfg, node: node, logger: logger}
	a.coord = orbit.NewCoordinator(db, node, post.NewFactory(orbit.RealClock{}), fs.NewOSFilesystemManager(ignore), logger, orbit.Options{
		Network: orbit.Network{
			Name: cfg.Network.Name,
			Host: cfg.Network.Host,
			Port: cfg.Network.Port,
		},
		CacheFile: cfg.CacheFile(),
		Commands:  a.commands(),
	})
	return a, nil
}

// Coordinator returns the coordinator all chat operations go through.
func (a *OrbitApp) Coordinator() *orbit.Coordinator {
	return a.coord
}

// Bus returns the coordinator's event bus.
func (a *OrbitApp) Bus() *orbit.EventBus {
	return a.coord.Bus()
}

// Operation returns the CLI invocation this app was created for.
func (a *OrbitApp) Operation() *Operation {
	return a.op
}

// Connect opens a session as the configured user. An empty address uses the
// configured network.
func (a *OrbitApp) Connect(ctx context.Context, address, password string) error {
	if a.cfg.User == "" {
		return fmt.Errorf("no user configured")
	}
	return a.coord.Connect(ctx, address, a.cfg.User, password)
}

// AddPeer registers another storage peer by multiaddr for this run.
func (a *OrbitApp) AddPeer(addr string) error {
	return a.node.Connect(addr)
}

// Close disconnects and closes the log file. It reports the first failure.
func (a *OrbitApp) Close() error {
	var firstErr error
	if err := a.coord.Disconnect(); err != nil {
		firstErr = fmt.Errorf("disconnecting: %w", err)
	}

	if a.op != nil {
		if firstErr != nil {
			a.op.Fail()
		}
		a.logger.Debug("operation finished",
			"command", a.op.Command,
			"status", a.op.Status,
			"duration", time.Since(a.op.Started).Round(time.Millisecond))
	}

	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// commands are the slash commands understood in chat input.
func (a *OrbitApp) commands() map[string]orbit.CommandHandler {
	return map[string]orbit.CommandHandler{
		"join": a.joinCommand,
		"part": a.partCommand,
	}
}

// joinCommand handles "/join <channel> [password]".
func (a *OrbitApp) joinCommand(ctx context.Context, _ string, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("usage: /join <channel> [password]")
	}
	password := ""
	if len(args) == 2 {
		password = args[1]
	}
	_, err := a.coord.Join(ctx, ChannelName(args[0]), password)
	return err
}

// partCommand handles "/part [channel]", defaulting to the current channel.
func (a *OrbitApp) partCommand(_ context.Context, current string, args []string) error {
	switch len(args) {
	case 0:
		a.coord.Leave(current)
	case 1:
		a.coord.Leave(ChannelName(args[0]))
	default:
		return fmt.Errorf("usage: /part [channel]")
	}
	return nil
}

// ChannelName strips the conventional leading '#' from a channel argument.
func ChannelName(s string) string {
	return strings.TrimPrefix(s, "#")
}
