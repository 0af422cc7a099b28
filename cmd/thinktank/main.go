package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rizkyguvio/ThinkTank/internal/config"
	"github.com/rizkyguvio/ThinkTank/internal/intent"
	"github.com/rizkyguvio/ThinkTank/internal/layout"
	"github.com/rizkyguvio/ThinkTank/internal/mcp"
	"github.com/rizkyguvio/ThinkTank/internal/nlp"
	"github.com/rizkyguvio/ThinkTank/internal/pipeline"
	"github.com/rizkyguvio/ThinkTank/internal/store"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "capture":
		err = runCapture(os.Args[2:])
	case "reprocess":
		err = runReprocess(os.Args[2:])
	case "clusters":
		err = runClusters(os.Args[2:])
	case "core":
		err = runCore(os.Args[2:])
	case "momentum":
		err = runMomentum(os.Args[2:])
	case "synthesis":
		err = runSynthesis(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "serve-mcp":
		err = runServeMCP(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("thinktank %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags are accepted by every data-touching command.
type commonFlags struct {
	dbPath    string
	embedSpec string
	onnxModel string
	onnxVocab string
	rest      []string
}

func parseCommonFlags(args []string) (commonFlags, error) {
	var flags commonFlags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		takeValue := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s requires a value", arg)
			}
			i++
			return args[i], nil
		}

		var err error
		switch {
		case arg == "--db":
			flags.dbPath, err = takeValue()
		case arg == "--embed":
			flags.embedSpec, err = takeValue()
		case arg == "--onnx-model":
			flags.onnxModel, err = takeValue()
		case arg == "--onnx-vocab":
			flags.onnxVocab, err = takeValue()
		case strings.HasPrefix(arg, "-"):
			return flags, fmt.Errorf("unknown flag: %s", arg)
		default:
			flags.rest = append(flags.rest, arg)
		}
		if err != nil {
			return flags, err
		}
	}
	return flags, nil
}

// buildEngine opens the store and assembles the pipeline from resolved
// configuration. The returned close function also closes the embedder
// when it owns native resources.
func buildEngine(flags commonFlags) (*pipeline.Engine, store.Store, func(), error) {
	resolved, err := config.Resolve(config.ResolveOptions{
		CLIDBPath: flags.dbPath,
		CLIEmbed:  flags.embedSpec,
		CLIModel:  flags.onnxModel,
		CLIVocab:  flags.onnxVocab,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	st, err := store.Open(store.Config{DBPath: resolved.DBPath.Value})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening store: %w", err)
	}
	closeFns := []func(){func() { st.Close() }}

	embedder, closeEmbedder, err := buildEmbedder(resolved)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	if closeEmbedder != nil {
		closeFns = append(closeFns, closeEmbedder)
	}

	var intents *intent.Classifier
	if embedder != nil {
		intents, err = intent.NewClassifier(context.Background(), embedder)
		if err != nil {
			// Concept embedding failure downgrades to lexical tags only.
			fmt.Fprintf(os.Stderr, "Warning: intent classifier disabled: %v\n", err)
			intents = nil
		}
	}

	opts := pipeline.DefaultOptions()
	opts.LexicalThreshold = resolved.LexicalThreshold.Float(opts.LexicalThreshold)
	opts.SemanticThreshold = resolved.SemanticThreshold.Float(opts.SemanticThreshold)
	opts.CandidatePool = resolved.CandidatePool.Int(opts.CandidatePool)

	engine := pipeline.NewEngine(st, nlp.NewRuleTokenizer(), embedder, intents, opts)
	closeAll := func() {
		for i := len(closeFns) - 1; i >= 0; i-- {
			closeFns[i]()
		}
	}
	return engine, st, closeAll, nil
}

// buildEmbedder picks the embedding backend: local ONNX when a model is
// configured, HTTP when an embed spec is, otherwise none (lexical-only).
func buildEmbedder(resolved config.ResolvedConfig) (nlp.Embedder, func(), error) {
	if resolved.ONNXModelPath.Value != "" {
		onnx, err := nlp.NewONNXEmbedder(nlp.ONNXConfig{
			ModelPath: resolved.ONNXModelPath.Value,
			VocabPath: resolved.ONNXVocabPath.Value,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("loading ONNX embedder: %w", err)
		}
		return onnx, func() { onnx.Close() }, nil
	}

	if resolved.EmbedSpec.Value != "" {
		cfg, err := nlp.ParseEmbedSpec(resolved.EmbedSpec.Value)
		if err != nil {
			return nil, nil, err
		}
		if resolved.EmbedEndpoint.Value != "" {
			cfg.Endpoint = resolved.EmbedEndpoint.Value
		}
		if resolved.EmbedAPIKey.Value != "" {
			cfg.APIKey = resolved.EmbedAPIKey.Value
		}
		client, err := nlp.NewHTTPEmbedder(cfg)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	}

	return nil, nil, nil
}

func runCapture(args []string) error {
	flags, err := parseCommonFlags(args)
	if err != nil {
		return err
	}
	if len(flags.rest) == 0 {
		return fmt.Errorf("usage: thinktank capture <text> [--db path] [--embed provider/model]")
	}
	content := strings.Join(flags.rest, " ")

	engine, _, closeAll, err := buildEngine(flags)
	if err != nil {
		return err
	}
	defer closeAll()

	idea, err := engine.CaptureAndEnrich(context.Background(), content)
	if err != nil {
		return err
	}

	fmt.Printf("Captured %s\n", idea.ID)
	if len(idea.Tags) > 0 {
		fmt.Printf("  tags: %s\n", strings.Join(idea.Tags, ", "))
	}
	if len(idea.Keywords) > 0 {
		fmt.Printf("  keywords: %s\n", strings.Join(idea.Keywords, ", "))
	}
	return nil
}

func runReprocess(args []string) error {
	flags, err := parseCommonFlags(args)
	if err != nil {
		return err
	}

	engine, _, closeAll, err := buildEngine(flags)
	if err != nil {
		return err
	}
	defer closeAll()

	fmt.Println("Clearing derived data and rebuilding...")
	result, err := engine.ReprocessAll(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Reprocessed %d ideas (%d failed) in %s\n",
		result.Processed, result.Failed, result.Duration.Round(time.Millisecond))
	return nil
}

func runClusters(args []string) error {
	flags, err := parseCommonFlags(args)
	if err != nil {
		return err
	}

	engine, _, closeAll, err := buildEngine(flags)
	if err != nil {
		return err
	}
	defer closeAll()

	snap, err := engine.LoadSnapshot(context.Background())
	if err != nil {
		return err
	}

	if len(snap.Clusters) == 0 {
		fmt.Println("No clusters yet — capture more ideas.")
		return nil
	}
	for i, cluster := range snap.Clusters {
		fmt.Printf("Cluster %d (%d ideas)\n", i+1, len(cluster))
		for _, id := range cluster {
			fmt.Printf("  %s  centrality %.2f\n", id, snap.Centrality[id])
		}
	}
	return nil
}

func runCore(args []string) error {
	flags, err := parseCommonFlags(args)
	if err != nil {
		return err
	}

	engine, _, closeAll, err := buildEngine(flags)
	if err != nil {
		return err
	}
	defer closeAll()

	snap, err := engine.LoadSnapshot(context.Background())
	if err != nil {
		return err
	}

	if snap.Core == nil {
		fmt.Println("No cognitive core yet — the graph has no clusters.")
		return nil
	}
	fmt.Printf("Cognitive core: %d ideas, density %.3f, score %.3f\n",
		len(snap.Core.ClusterIDs), snap.Core.Density, snap.Core.Score)
	for _, id := range snap.Core.ClusterIDs {
		fmt.Printf("  %s\n", id)
	}
	return nil
}

func runMomentum(args []string) error {
	flags, err := parseCommonFlags(args)
	if err != nil {
		return err
	}

	engine, _, closeAll, err := buildEngine(flags)
	if err != nil {
		return err
	}
	defer closeAll()

	emerging, fading, err := engine.MomentumSignals(context.Background(), time.Now().UTC())
	if err != nil {
		return err
	}

	if len(emerging) == 0 && len(fading) == 0 {
		fmt.Println("No momentum signals.")
		return nil
	}
	for _, signal := range emerging {
		fmt.Printf("Emerging: %s (momentum %.2f, %d recent / %d prior)\n",
			signal.Theme, signal.Momentum, signal.RecentCount, signal.PriorCount)
	}
	for _, signal := range fading {
		fmt.Printf("Fading: %s (%d recent / %d prior)\n",
			signal.Theme, signal.RecentCount, signal.PriorCount)
	}
	return nil
}

func runSynthesis(args []string) error {
	flags, err := parseCommonFlags(args)
	if err != nil {
		return err
	}

	engine, _, closeAll, err := buildEngine(flags)
	if err != nil {
		return err
	}
	defer closeAll()

	candidates, err := engine.SynthesisCandidates(context.Background())
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		fmt.Println("No missed connections among the largest clusters.")
		return nil
	}
	for _, c := range candidates {
		fmt.Printf("Missed connection (%d ideas <-> %d ideas):\n", len(c.ClusterA), len(c.ClusterB))
		if c.RepresentativeA != nil {
			fmt.Printf("  A: %s\n", c.RepresentativeA.Content)
		}
		if c.RepresentativeB != nil {
			fmt.Printf("  B: %s\n", c.RepresentativeB.Content)
		}
	}
	return nil
}

func runStats(args []string) error {
	flags, err := parseCommonFlags(args)
	if err != nil {
		return err
	}

	_, st, closeAll, err := buildEngine(flags)
	if err != nil {
		return err
	}
	defer closeAll()

	stats, err := st.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Ideas:      %d (%d active, %d resolved, %d archived)\n",
		stats.IdeaCount, stats.ActiveCount, stats.ResolvedCount, stats.ArchivedCount)
	fmt.Printf("Themes:     %d\n", stats.ThemeCount)
	fmt.Printf("Edges:      %d\n", stats.EdgeCount)
	fmt.Printf("Embeddings: %d\n", stats.EmbeddedCount)
	if stats.DBSizeBytes > 0 {
		fmt.Printf("DB size:    %.1f KB\n", float64(stats.DBSizeBytes)/1024)
	}
	return nil
}

func runServeMCP(args []string) error {
	flags, err := parseCommonFlags(args)
	if err != nil {
		return err
	}

	engine, st, closeAll, err := buildEngine(flags)
	if err != nil {
		return err
	}
	defer closeAll()

	server := mcp.NewServer(mcp.ServerConfig{
		Store:     st,
		Engine:    engine,
		Version:   version,
		LayoutCfg: layout.DefaultConfig(),
	})
	return mcp.ServeStdio(server)
}

func runConfig(args []string) error {
	flags, err := parseCommonFlags(args)
	if err != nil {
		return err
	}

	resolved, err := config.Resolve(config.ResolveOptions{
		CLIDBPath: flags.dbPath,
		CLIEmbed:  flags.embedSpec,
		CLIModel:  flags.onnxModel,
		CLIVocab:  flags.onnxVocab,
	})
	if err != nil {
		return err
	}

	show := func(name string, v config.ResolvedValue) {
		if v.Value == "" {
			fmt.Printf("%-20s (unset)\n", name)
			return
		}
		fmt.Printf("%-20s %s  [%s]\n", name, v.Value, v.Source)
	}
	fmt.Printf("config file: %s\n\n", resolved.ConfigPath)
	show("db_path", resolved.DBPath)
	show("embed_spec", resolved.EmbedSpec)
	show("embed_endpoint", resolved.EmbedEndpoint)
	show("onnx_model", resolved.ONNXModelPath)
	show("onnx_vocab", resolved.ONNXVocabPath)
	show("lexical_threshold", resolved.LexicalThreshold)
	show("semantic_threshold", resolved.SemanticThreshold)
	show("candidate_pool", resolved.CandidatePool)
	show("layout_node_cap", resolved.LayoutNodeCap)
	return nil
}

func printUsage() {
	fmt.Printf(`thinktank %s — idea graph analytics engine

Usage:
  thinktank <command> [arguments]

Commands:
  capture <text>      Capture and enrich a new idea
  reprocess           Clear and rebuild all derived themes and edges
  clusters            Show connected clusters of the similarity graph
  core                Show the cognitive core (densest significant cluster)
  momentum            Show emerging and fading theme signals
  synthesis           Show missed-connection prompts between clusters
  stats               Show corpus statistics
  serve-mcp           Serve the engine over MCP stdio
  config              Show resolved configuration and value sources
  version             Print version

Flags (all data commands):
      --db <path>            Database path (default: %s)
      --embed <prov/model>   OpenAI-compatible embedding backend
      --onnx-model <path>    Local ONNX sentence-transformer model
      --onnx-vocab <path>    Wordpiece vocab.txt for the ONNX model

Embeddings are optional: without a backend the engine runs lexical-only.
`, version, store.DefaultDBPath)
}
