package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/councilflow/analytics"
	"github.com/BaSui01/councilflow/config"
	"github.com/BaSui01/councilflow/council"
	"github.com/BaSui01/councilflow/types"
)

// Version information, injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "debate":
		runDebate(os.Args[2:])
	case "consciousness":
		runConsciousness(os.Args[2:])
	case "sessions":
		runSessions(os.Args[2:])
	case "report":
		runReport(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runDebate(args []string) {
	fs := flag.NewFlagSet("debate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	question := fs.String("question", "", "Question to deliberate")
	title := fs.String("title", "", "Session title override")
	minIt := fs.Int("min-it", 0, "Minimum argument rounds override")
	maxIt := fs.Int("max-it", 0, "Maximum argument rounds override")
	mode := fs.String("mode", "", "Consensus mode: majority, supermajority, unanimity")
	threshold := fs.Float64("threshold", -1, "Consensus threshold override [0,1]")
	elimination := fs.Bool("elimination", false, "Eliminate the lowest-ranked participant between rounds")
	judgeModel := fs.String("judge", "", "Judge model override")
	useRAG := fs.Bool("rag", false, "Enable memory and document retrieval")
	stream := fs.Bool("stream", false, "Stream argument tokens to stdout")
	format := fs.String("format", "", "Debate format: oxford, socratic, devils_advocate, parliamentary")
	motion := fs.String("motion", "", "Motion for oxford and parliamentary formats")
	collab := fs.String("collab", "", "Collaboration strategy: consensus, problem_solving, synthesis, brainstorming")
	fs.Parse(args)

	q := resolveQuestion(*question, fs.Args())
	cfg := loadConfig(*configPath)
	if *title != "" {
		cfg.Council.Title = *title
	}
	if *minIt > 0 {
		cfg.Council.MinIterations = *minIt
	}
	if *maxIt > 0 {
		cfg.Council.MaxIterations = *maxIt
	}
	if *mode != "" {
		cfg.Council.ConsensusMode = *mode
	}
	if *threshold >= 0 {
		cfg.Council.ConsensusThreshold = *threshold
	}
	if *elimination {
		cfg.Council.EliminationEnabled = true
	}
	if *judgeModel != "" {
		cfg.Judge.Model = *judgeModel
	}
	if *useRAG {
		cfg.Council.Retrieval.Enabled = true
		cfg.Council.Retrieval.UseMemory = true
		cfg.Council.Retrieval.UseDocuments = true
	}
	if *format != "" {
		cfg.Council.Format.Type = *format
	}
	if *motion != "" {
		cfg.Council.Format.Motion = *motion
	}
	if *collab != "" {
		cfg.Council.Collaboration.Enabled = true
		cfg.Council.Collaboration.Strategy = *collab
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, cfg.Roster(), logger, tokenPrinter(*stream))
	if err != nil {
		logger.Error("failed to assemble session", zap.Error(err))
		os.Exit(1)
	}
	defer app.Close()

	state, err := app.Engine.Run(ctx, q)
	reportSession(state, err, app, logger)
}

// tokenPrinter returns a stdout sink for streamed deltas, or nil.
func tokenPrinter(enabled bool) func(participantKey, delta string) {
	if !enabled {
		return nil
	}
	return func(_, delta string) {
		fmt.Print(delta)
	}
}

func runConsciousness(args []string) {
	fs := flag.NewFlagSet("consciousness", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	question := fs.String("question", "", "Question to explore")
	title := fs.String("title", "", "Session title override")
	elimination := fs.Bool("elimination", false, "Record an advisory elimination suggestion")
	stream := fs.Bool("stream", false, "Stream argument tokens to stdout")
	fs.Parse(args)

	q := resolveQuestion(*question, fs.Args())
	cfg := loadConfig(*configPath)
	if *title != "" {
		cfg.Council.Title = *title
	}
	if *elimination {
		cfg.Council.EliminationEnabled = true
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Without explicit participants, consciousness mode uses its own
	// fixed-role personas rather than the debate roster.
	roster := cfg.Participants
	roles := council.ConsciousnessRoles{
		Moderator: cfg.Consciousness.Moderator,
		Speakers:  cfg.Consciousness.Speakers,
		Critic:    cfg.Consciousness.Critic,
	}
	if len(roster) == 0 {
		roster = config.ConsciousnessPersonas(cfg.Providers[0].Name)
	}
	if roles.Moderator == "" {
		def := config.DefaultConsciousnessRoles()
		roles = council.ConsciousnessRoles{
			Moderator: def.Moderator,
			Speakers:  def.Speakers,
			Critic:    def.Critic,
		}
	}

	app, err := buildApp(ctx, cfg, roster, logger, tokenPrinter(*stream))
	if err != nil {
		logger.Error("failed to assemble session", zap.Error(err))
		os.Exit(1)
	}
	defer app.Close()

	state, err := app.Engine.RunConsciousness(ctx, q, roles)
	reportSession(state, err, app, logger)
}

func runSessions(args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx := context.Background()
	store, err := buildCheckpointStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open checkpoint store", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	ids, err := store.List(ctx)
	if err != nil {
		logger.Error("failed to list sessions", zap.Error(err))
		os.Exit(1)
	}
	for _, id := range ids {
		cp, err := store.LoadLatest(ctx, id)
		if err != nil {
			fmt.Printf("%s\t(unreadable: %v)\n", id, err)
			continue
		}
		fmt.Printf("%s\t%s\t%s\trounds=%d\n", id, cp.State.Status, cp.Phase, len(cp.State.Rounds))
	}
}

// runReport analyzes one stored session, or aggregates all of them.
func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	all := fs.Bool("all", false, "Aggregate participant totals across every stored session")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx := context.Background()
	store, err := buildCheckpointStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open checkpoint store", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	if *all {
		ids, err := store.List(ctx)
		if err != nil {
			logger.Error("failed to list sessions", zap.Error(err))
			os.Exit(1)
		}
		var reports []*analytics.Report
		for _, id := range ids {
			cp, err := store.LoadLatest(ctx, id)
			if err != nil {
				logger.Warn("skipping unreadable session", zap.String("session_id", id), zap.Error(err))
				continue
			}
			reports = append(reports, analytics.Analyze(cp.State))
		}
		for _, t := range sortedTotals(analytics.Aggregate(reports)) {
			fmt.Printf("%s\tsessions=%d arguments=%d first_place=%d win_rate=%.2f\n",
				t.Name, t.Sessions, t.Arguments, t.FirstPlaceVotes, t.AvgWinRate)
		}
		return
	}

	id := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if id == "" {
		fmt.Fprintln(os.Stderr, "a session ID is required: councilflow report <session-id> (or --all)")
		os.Exit(1)
	}
	cp, err := store.LoadLatest(ctx, id)
	if err != nil {
		logger.Error("failed to load session", zap.String("session_id", id), zap.Error(err))
		os.Exit(1)
	}
	fmt.Print(analytics.Analyze(cp.State).Render())
}

func sortedTotals(totals map[string]analytics.AgentTotals) []analytics.AgentTotals {
	out := make([]analytics.AgentTotals, 0, len(totals))
	for _, t := range totals {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstPlaceVotes != out[j].FirstPlaceVotes {
			return out[i].FirstPlaceVotes > out[j].FirstPlaceVotes
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// reportSession prints the outcome and exits non-zero on a failed session.
func reportSession(state *types.SessionState, err error, app *App, logger *zap.Logger) {
	if err != nil {
		logger.Error("session failed", zap.Error(err))
		if state != nil {
			fmt.Fprintf(os.Stderr, "session %s failed: %v\n", state.ID, err)
		}
		os.Exit(1)
	}

	fmt.Printf("Session:  %s\n", state.ID)
	fmt.Printf("Outcome:  %s after %d round(s)\n", state.Outcome, len(state.Rounds))
	if app.TranscriptPath(state.ID) != "" {
		fmt.Printf("Artifacts: %s\n", app.TranscriptPath(state.ID))
	}
	fmt.Printf("\n%s\n", state.JudgeDecision)
}

func resolveQuestion(flagValue string, rest []string) string {
	q := strings.TrimSpace(flagValue)
	if q == "" {
		q = strings.TrimSpace(strings.Join(rest, " "))
	}
	if q == "" {
		fmt.Fprintln(os.Stderr, "a question is required: --question \"...\" or positional arguments")
		os.Exit(1)
	}
	return q
}

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func printVersion() {
	fmt.Printf("councilflow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`councilflow - multi-persona LLM deliberation

Usage:
  councilflow <command> [options] [question]

Commands:
  debate         Run a ranked-voting debate council
  consciousness  Run a fixed-role consciousness session
  sessions       List checkpointed sessions
  report         Analyze a stored session (or --all for aggregate totals)
  version        Show version information
  help           Show this help message

Options:
  --config <path>     Path to configuration file (YAML)
  --question <text>   Question to deliberate (or pass it positionally)
  --title <text>      Session title override
  --stream            Stream argument tokens to stdout

Options for 'debate':
  --min-it <n>        Minimum argument rounds
  --max-it <n>        Maximum argument rounds
  --mode <mode>       Consensus mode: majority, supermajority, unanimity
  --threshold <f>     Consensus threshold in [0,1]
  --elimination       Eliminate the lowest-ranked participant between rounds
  --judge <model>     Judge model override
  --rag               Enable memory and document retrieval
  --format <name>     Debate format: oxford, socratic, devils_advocate, parliamentary
  --motion <text>     Motion for oxford and parliamentary formats
  --collab <strategy> Collaborative mode: consensus, problem_solving, synthesis, brainstorming

Examples:
  councilflow debate --question "Should we migrate to event sourcing?"
  councilflow debate --config council.yaml "Is the rewrite worth it?"
  councilflow debate --format oxford --motion "This house would rewrite it" "Rewrite or refactor?"
  councilflow consciousness "What makes an explanation satisfying?"
  councilflow sessions --config council.yaml
  councilflow report --config council.yaml 20260314_093000_Rewrite`)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	logger, err := zapConfig.Build(opts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
