package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"orbit-go/internal/app"
	"orbit-go/internal/config"
	"orbit-go/internal/orbit"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config, applies the global flags and creates an OrbitApp.
// The caller must defer app.Close().
func newApp(cmd *cobra.Command, operation string) (*app.OrbitApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if user, _ := cmd.Flags().GetString("user"); user != "" {
		cfg.User = user
	}

	a, err := app.NewOrbitApp(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	peers, _ := cmd.Flags().GetStringSlice("peer")
	for _, p := range peers {
		if err := a.AddPeer(p); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// withApp runs fn against a new app, connected first when connect is set.
// A failure marks the operation failed before the app is closed.
func withApp(operation string, connect bool, fn func(cmd *cobra.Command, a *app.OrbitApp, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, operation)
		if err != nil {
			return err
		}
		defer func() {
			if err != nil {
				a.Operation().Fail()
			}
			if cerr := a.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()

		if connect {
			address, _ := cmd.Flags().GetString("address")
			password, err := readPassword()
			if err != nil {
				return err
			}
			if err := a.Connect(cmd.Context(), address, password); err != nil {
				return err
			}
		}
		return fn(cmd, a, args)
	}
}

// readPassword takes the user password from ORBIT_PASSWORD, or prompts for it
// without echo when stdin is a terminal.
func readPassword() (string, error) {
	if pw, ok := os.LookupEnv("ORBIT_PASSWORD"); ok {
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password: set ORBIT_PASSWORD or run from a terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// joinChannel joins the channel named by arg with the --key flag.
func joinChannel(cmd *cobra.Command, a *app.OrbitApp, arg string) (string, error) {
	name := app.ChannelName(arg)
	key, _ := cmd.Flags().GetString("key")
	if _, err := a.Coordinator().Join(cmd.Context(), name, key); err != nil {
		return "", err
	}
	return name, nil
}

// formatEntry renders a log entry with its post for display.
func formatEntry(ctx context.Context, coord *orbit.Coordinator, e orbit.Entry) string {
	p, err := coord.GetPost(ctx, e.Value)
	if err != nil {
		return fmt.Sprintf("%s  <unreadable post %s>", e.Hash, e.Value)
	}
	ts := p.CreatedAt.Local().Format("2006-01-02 15:04:05")

	switch p.Type {
	case orbit.PostMessage:
		msg, err := p.Message()
		if err != nil {
			break
		}
		if rest, ok := strings.CutPrefix(msg.Content, "/me"); ok {
			return fmt.Sprintf("%s  * %s%s", ts, msg.From, rest)
		}
		return fmt.Sprintf("%s  <%s> %s", ts, msg.From, msg.Content)
	case orbit.PostFile, orbit.PostDirectory:
		f, err := p.File()
		if err != nil {
			break
		}
		kind := "file"
		if f.Directory {
			kind = "dir"
		}
		return fmt.Sprintf("%s  <%s> [%s] %s (%d bytes) %s", ts, f.From, kind, f.Name, f.Size, f.Hash)
	}
	return fmt.Sprintf("%s  <malformed %s post %s>", ts, p.Type, e.Value)
}

var rootCmd = &cobra.Command{
	Use:          "orbit",
	Short:        "Peer-to-peer chat client",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		user, _ := cmd.Flags().GetString("user")
		if user == "" {
			user = os.Getenv("USER")
		}
		if user == "" {
			return fmt.Errorf("no user name: pass --user")
		}

		cfg := config.NewConfig(user, defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("User:     %s\n", user)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("User:       %s\n", cfg.User)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Network:    %s (%s:%d)\n", cfg.Network.Name, cfg.Network.Host, cfg.Network.Port)
		fmt.Printf("Cache:      %s\n", cfg.CacheFile())
		fmt.Printf("Blockstore: %s\n", cfg.Blockstore.Type)
		return nil
	},
}

var joinCmd = &cobra.Command{
	Use:   "join CHANNEL...",
	Short: "Join channels and list them",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp("join", true, func(cmd *cobra.Command, a *app.OrbitApp, args []string) error {
		for _, arg := range args {
			if _, err := joinChannel(cmd, a, arg); err != nil {
				return err
			}
		}
		for _, ch := range a.Coordinator().Channels() {
			fmt.Printf("#%s\n", ch.Name)
		}
		return nil
	}),
}

var sendCmd = &cobra.Command{
	Use:   "send CHANNEL TEXT...",
	Short: "Send a message",
	Args:  cobra.MinimumNArgs(2),
	RunE: withApp("send", true, func(cmd *cobra.Command, a *app.OrbitApp, args []string) error {
		name, err := joinChannel(cmd, a, args[0])
		if err != nil {
			return err
		}
		return a.Coordinator().Send(cmd.Context(), name, strings.Join(args[1:], " "))
	}),
}

var messagesCmd = &cobra.Command{
	Use:   "messages CHANNEL",
	Short: "Show channel history",
	Args:  cobra.ExactArgs(1),
	RunE: withApp("messages", true, func(cmd *cobra.Command, a *app.OrbitApp, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		before, _ := cmd.Flags().GetString("before")
		since, _ := cmd.Flags().GetString("since")

		name, err := joinChannel(cmd, a, args[0])
		if err != nil {
			return err
		}

		coord := a.Coordinator()
		page, err := coord.Retrieve(cmd.Context(), name, orbit.Query{
			LessThan:           before,
			GreaterThanOrEqual: since,
			Limit:              limit,
		})
		if err != nil {
			return err
		}

		if len(page.Messages) == 0 {
			fmt.Println("No messages.")
			return nil
		}
		for _, e := range page.Messages {
			fmt.Println(formatEntry(cmd.Context(), coord, e))
		}
		fmt.Printf("(oldest entry: %s)\n", page.Messages[0].Hash)
		return nil
	}),
}

var addCmd = &cobra.Command{
	Use:   "add CHANNEL PATH",
	Short: "Share a file or directory",
	Args:  cobra.ExactArgs(2),
	RunE: withApp("add", true, func(cmd *cobra.Command, a *app.OrbitApp, args []string) error {
		name, err := joinChannel(cmd, a, args[0])
		if err != nil {
			return err
		}
		if err := a.Coordinator().AddFile(cmd.Context(), name, args[1]); err != nil {
			return err
		}
		fmt.Printf("Shared %s in #%s\n", args[1], name)
		return nil
	}),
}

var lsCmd = &cobra.Command{
	Use:   "ls HASH",
	Short: "List a shared directory",
	Args:  cobra.ExactArgs(1),
	RunE: withApp("ls", false, func(cmd *cobra.Command, a *app.OrbitApp, args []string) error {
		links, err := a.Coordinator().GetDirectoryListing(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, l := range links {
			fmt.Printf("%-9s  %10d  %s  %s\n", l.Type, l.Size, l.Hash, l.Name)
		}
		return nil
	}),
}

var postCmd = &cobra.Command{
	Use:   "post HASH",
	Short: "Show a stored post",
	Args:  cobra.ExactArgs(1),
	RunE: withApp("post", false, func(cmd *cobra.Command, a *app.OrbitApp, args []string) error {
		p, err := a.Coordinator().GetPost(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding post: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}),
}

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List storage peers",
	RunE: withApp("peers", false, func(cmd *cobra.Command, a *app.OrbitApp, args []string) error {
		peers, err := a.Coordinator().SwarmPeers(cmd.Context())
		if err != nil {
			return err
		}
		if len(peers) == 0 {
			fmt.Println("No peers.")
			return nil
		}
		for _, p := range peers {
			fmt.Println(p)
		}
		return nil
	}),
}

var chatCmd = &cobra.Command{
	Use:   "chat CHANNEL",
	Short: "Chat interactively",
	Args:  cobra.ExactArgs(1),
	RunE: withApp("chat", true, func(cmd *cobra.Command, a *app.OrbitApp, args []string) error {
		ctx := cmd.Context()
		coord := a.Coordinator()
		bus := a.Bus()

		defer bus.Subscribe(orbit.EventMessage, func(e orbit.Event) {
			fmt.Printf("#%s  %s\n", e.Channel, formatEntry(ctx, coord, e.Message))
		})()
		defer bus.Subscribe(orbit.EventError, func(e orbit.Event) {
			fmt.Fprintf(os.Stderr, "error: %s\n", e.Err)
		})()
		defer bus.Subscribe(orbit.EventChannelsUpdated, func(e orbit.Event) {
			names := make([]string, len(e.Channels))
			for i, ch := range e.Channels {
				names[i] = "#" + ch.Name
			}
			fmt.Printf("channels: %s\n", strings.Join(names, " "))
		})()
		unsubscribe := bus.Subscribe(orbit.EventNetwork, func(e orbit.Event) {
			if e.Session != nil {
				fmt.Printf("connected to %s as %s\n", e.Session.Network().Name, e.Session.User().Username)
			}
		})
		coord.Announce()
		unsubscribe()

		current, err := joinChannel(cmd, a, args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		if page, err := coord.Retrieve(ctx, current, orbit.Query{Limit: limit}); err == nil {
			for _, e := range page.Messages {
				fmt.Printf("#%s  %s\n", current, formatEntry(ctx, coord, e))
			}
		}

		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				line = strings.TrimSpace(line)
				switch {
				case line == "":
				case line == "/quit":
					return nil
				case strings.HasPrefix(line, "/switch "):
					current = app.ChannelName(strings.TrimSpace(strings.TrimPrefix(line, "/switch ")))
				default:
					// Failures arrive as orbit.error events.
					_ = coord.Send(ctx, current, line)
				}
			}
		}
	}),
}

func init() {
	rootCmd.PersistentFlags().String("user", "", "User name (overrides config)")
	rootCmd.PersistentFlags().String("address", "", "Network address host:port (default from config)")
	rootCmd.PersistentFlags().StringSlice("peer", nil, "Additional storage peer multiaddr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	for _, c := range []*cobra.Command{joinCmd, sendCmd, messagesCmd, addCmd, chatCmd} {
		c.Flags().StringP("key", "k", "", "Channel password")
		rootCmd.AddCommand(c)
	}
	messagesCmd.Flags().IntP("limit", "n", 20, "Maximum number of messages to show (-1 for all)")
	messagesCmd.Flags().String("before", "", "Only entries older than this entry hash")
	messagesCmd.Flags().String("since", "", "Only entries from this entry hash on")
	chatCmd.Flags().IntP("limit", "n", 20, "Number of recent messages to show on join")
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(peersCmd)
}
