// marvin - a personal assistant shell with an adaptive command-resolution
// engine. Commands it does not recognize are learned from external language
// model providers and remembered for next time.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/mpetrov/marvin/pkg/agent"
	"github.com/mpetrov/marvin/pkg/automation"
	"github.com/mpetrov/marvin/pkg/bus"
	"github.com/mpetrov/marvin/pkg/channels"
	"github.com/mpetrov/marvin/pkg/config"
	"github.com/mpetrov/marvin/pkg/heartbeat"
	"github.com/mpetrov/marvin/pkg/knowledge"
	"github.com/mpetrov/marvin/pkg/logger"
	"github.com/mpetrov/marvin/pkg/memory"
	"github.com/mpetrov/marvin/pkg/providers"
	"github.com/mpetrov/marvin/pkg/resolve"
	"github.com/mpetrov/marvin/pkg/session"
	"github.com/mpetrov/marvin/pkg/state"
)

var (
	version   = "dev"
	buildTime string
)

const logo = "🤖"
const displayName = "marvin"

func main() {
	command := "agent"
	if len(os.Args) >= 2 {
		switch arg := os.Args[1]; {
		case arg == "--version", arg == "-v", arg == "--help", arg == "-h":
			command = arg
		case strings.HasPrefix(arg, "-"):
			// Bare flags mean the default command: marvin --debug.
		default:
			command = arg
		}
	}

	switch command {
	case "onboard":
		onboard()
	case "agent":
		agentCmd()
	case "status":
		statusCmd()
	case "knowledge":
		knowledgeCmd()
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("%s %s v%s\n", logo, displayName, version)
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
	fmt.Printf("  Go: %s\n", runtime.Version())
}

func printHelp() {
	fmt.Printf("%s %s - personal assistant shell v%s\n\n", logo, displayName, version)
	fmt.Println("Usage: marvin <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  agent       Start the interactive assistant (default)")
	fmt.Println("  onboard     Initialize configuration and workspace")
	fmt.Println("  status      Show runtime counters and learning progress")
	fmt.Println("  knowledge   Inspect learned tasks (list, show <task>)")
	fmt.Println("  version     Show version information")
	fmt.Println()
	fmt.Println("Agent flags:")
	fmt.Println("  --debug, -d       Verbose logging")
	fmt.Println("  -m <message>      Handle a single command (non-interactive)")
	fmt.Println("  --config <path>   Use an alternate config file")
}

func loadConfig() *config.Config {
	path := config.DefaultPath()
	args := os.Args
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			path = args[i+1]
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func onboard() {
	path := config.DefaultPath()
	if _, err := os.Stat(path); err == nil {
		// Never overwrite an existing config, it may carry API keys.
		fmt.Printf("Config already exists at %s (preserved)\n", path)
	} else {
		if err := config.Save(path, config.DefaultConfig()); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created config at %s\n", path)
	}

	cfg := loadConfig()
	for _, dir := range []string{
		cfg.Assistant.Workspace,
		filepath.Join(cfg.Assistant.Workspace, "data"),
		filepath.Join(cfg.Assistant.Workspace, "sessions"),
		cfg.Automation.ScreenshotPath,
	} {
		os.MkdirAll(dir, 0755)
	}
	fmt.Printf("Workspace ready at %s\n", cfg.Assistant.Workspace)
	fmt.Println()
	fmt.Println("Add provider API keys to get the learning engine online:")
	fmt.Printf("  %s\n", filepath.Join(cfg.Assistant.Workspace, ".env"))
	fmt.Println("  (GROQ_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY)")
}

// openStore picks the knowledge backend from config and makes sure it is
// usable before the agent starts.
func openStore(cfg *config.Config) knowledge.Store {
	var store knowledge.Store
	if cfg.Knowledge.Backend == "sqlite" {
		store = knowledge.NewSQLiteStore(cfg.Knowledge.Path)
	} else {
		store = knowledge.NewFileStore(cfg.Knowledge.Path)
	}
	if err := store.Ensure(); err != nil {
		fmt.Printf("Error opening knowledge store: %v\n", err)
		os.Exit(1)
	}
	return store
}

func buildProviders(cfg *config.Config) []providers.Provider {
	var provs []providers.Provider
	for _, name := range cfg.Providers.Order {
		switch name {
		case "groq":
			if cfg.Providers.Groq.APIKey != "" {
				provs = append(provs, providers.NewOpenAIProvider(
					"groq", cfg.Providers.Groq.APIKey,
					cfg.Providers.Groq.APIBase, cfg.Providers.Groq.Model))
			}
		case "gemini":
			if cfg.Providers.Gemini.APIKey != "" {
				provs = append(provs, providers.NewGeminiProvider(
					cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.Model))
			}
		case "openai":
			if cfg.Providers.OpenAI.APIKey != "" {
				provs = append(provs, providers.NewOpenAIProvider(
					"openai", cfg.Providers.OpenAI.APIKey,
					cfg.Providers.OpenAI.APIBase, cfg.Providers.OpenAI.Model))
			}
		case "anthropic":
			if cfg.Providers.Anthropic.APIKey != "" {
				provs = append(provs, providers.NewAnthropicProvider(
					cfg.Providers.Anthropic.APIKey, cfg.Providers.Anthropic.Model))
			}
		default:
			logger.WarnCF("main", "Unknown provider in order, skipping", map[string]interface{}{
				"provider": name,
			})
		}
	}
	return provs
}

func agentCmd() {
	message := ""
	start := 1
	if len(os.Args) >= 2 && os.Args[1] == "agent" {
		start = 2
	}
	args := os.Args[start:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--debug", "-d":
			logger.SetDebug(true)
		case "-m", "--message":
			if i+1 < len(args) {
				message = args[i+1]
				i++
			}
		}
	}

	cfg := loadConfig()
	if cfg.Debug {
		logger.SetDebug(true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg)
	defer store.Close()

	if fs, ok := store.(*knowledge.FileStore); ok && cfg.Knowledge.WatchExternal {
		go func() {
			if err := knowledge.WatchExternal(ctx, fs); err != nil && err != context.Canceled {
				logger.WarnCF("main", "Store watcher stopped", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	events := memory.NewEventLog(filepath.Join(cfg.Assistant.Workspace, "data", "events.log"))
	events.Record(memory.EventSystem, "assistant starting")

	var searcher automation.Searcher
	if cfg.Automation.Browser {
		browser := automation.NewBrowser()
		defer browser.Close()
		searcher = browser
	}
	desktop := automation.NewDesktop(automation.DesktopOptions{
		Applications:   cfg.Automation.Applications,
		SearchEngine:   cfg.Automation.SearchEngine,
		CommandTimeout: cfg.Automation.CommandTimeout,
		Searcher:       searcher,
	})

	gateway := providers.NewGateway(buildProviders(cfg), func() string {
		return events.LastN(cfg.Assistant.MemoryEvents)
	})
	if len(gateway.Providers()) == 0 {
		logger.WarnCF("main", "No providers configured, learning disabled", map[string]interface{}{
			"hint": "set API keys in " + filepath.Join(cfg.Assistant.Workspace, ".env"),
		})
	}

	engine := resolve.NewEngine(resolve.EngineOptions{
		Store:         store,
		Solver:        gateway,
		Automation:    desktop,
		Events:        events,
		ScreenshotDir: cfg.Automation.ScreenshotPath,
	})

	sessions := session.NewManager(filepath.Join(cfg.Assistant.Workspace, "sessions"), 40)
	runtimeState := state.NewManager(cfg.Assistant.Workspace)
	commandBus := bus.NewCommandBus()
	defer commandBus.Close()

	loop := agent.New(agent.Options{
		Bus:      commandBus,
		Builtins: agent.NewBuiltins(desktop, events, cfg.Assistant.Name, cfg.Automation.ScreenshotPath),
		Engine:   engine,
		Chatter:  gateway,
		Sessions: sessions,
		Events:   events,
		Runtime:  runtimeState,
	})
	go loop.Run(ctx)

	if cfg.Heartbeat.Enabled {
		hb := heartbeat.New(store, engine, cfg.Heartbeat.Schedule,
			cfg.Heartbeat.MaxPerSweep, loop.TurnLock())
		go hb.Run(ctx)
	}

	if message != "" {
		cmd := bus.NewCommand("cli", message)
		if err := commandBus.PublishCommand(ctx, cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		resp, ok := commandBus.SubscribeResponse(ctx)
		if !ok {
			os.Exit(1)
		}
		fmt.Printf("%s %s\n", logo, resp.Text)
		return
	}

	cli := channels.NewCLIChannel(commandBus, cfg.Assistant.Name)
	if err := cli.Run(ctx); err != nil && err != context.Canceled {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	events.Record(memory.EventSystem, "assistant stopped")
}

func statusCmd() {
	cfg := loadConfig()
	st := state.NewManager(cfg.Assistant.Workspace).Snapshot()
	store := openStore(cfg)
	defer store.Close()

	var learned, unknown int
	for _, rec := range store.List() {
		if rec.Learned() {
			learned++
		} else {
			unknown++
		}
	}

	fmt.Printf("%s %s status\n\n", logo, displayName)
	fmt.Printf("  Workspace:         %s\n", cfg.Assistant.Workspace)
	fmt.Printf("  Knowledge backend: %s (%s)\n", cfg.Knowledge.Backend, cfg.Knowledge.Path)
	fmt.Printf("  Tasks learned:     %d\n", learned)
	fmt.Printf("  Tasks pending:     %d\n", unknown)
	fmt.Printf("  Commands handled:  %d\n", st.CommandsHandled)
	if !st.LastCommandAt.IsZero() {
		fmt.Printf("  Last command:      %s via %s\n",
			st.LastCommandAt.Format("2006-01-02 15:04:05"), st.LastChannel)
	}
}

func knowledgeCmd() {
	sub := "list"
	if len(os.Args) >= 3 {
		sub = os.Args[2]
	}

	cfg := loadConfig()
	store := openStore(cfg)
	defer store.Close()

	switch sub {
	case "list":
		records := store.List()
		if len(records) == 0 {
			fmt.Println("Nothing learned yet.")
			return
		}
		for _, rec := range records {
			marker := " "
			if rec.Learned() {
				marker = "*"
			}
			fmt.Printf("%s %-40s %s (attempts: %d)\n", marker, rec.Task, rec.Status, rec.Attempts)
		}
	case "show":
		if len(os.Args) < 4 {
			fmt.Println("Usage: marvin knowledge show <task>")
			os.Exit(2)
		}
		task := knowledge.Normalize(strings.Join(os.Args[3:], " "))
		rec, ok := store.Get(task)
		if !ok {
			fmt.Printf("No record for %q\n", task)
			os.Exit(1)
		}
		fmt.Printf("Task:       %s\n", rec.Task)
		fmt.Printf("Status:     %s\n", rec.Status)
		fmt.Printf("First seen: %s\n", rec.FirstSeen.Format("2006-01-02 15:04:05"))
		if rec.LearnedAt != nil {
			fmt.Printf("Learned at: %s\n", rec.LearnedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Attempts:   %d\n", rec.Attempts)
		if rec.Solution != "" {
			fmt.Printf("\n%s\n", rec.Solution)
		}
	default:
		fmt.Printf("Unknown knowledge command: %s\n", sub)
		fmt.Println("Usage: marvin knowledge [list|show <task>]")
		os.Exit(2)
	}
}
