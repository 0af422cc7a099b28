// Package config resolves ThinkTank configuration from (in priority
// order) CLI flags, environment variables, a YAML config file, and
// built-in defaults, remembering where each value came from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueSource records where a resolved value came from.
type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is a config value with provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries CLI-provided overrides into resolution.
type ResolveOptions struct {
	ConfigPath string
	CLIDBPath  string
	CLIEmbed   string
	CLIModel   string
	CLIVocab   string
}

// ResolvedConfig is the full resolved configuration.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath        ResolvedValue `json:"db_path"`
	EmbedSpec     ResolvedValue `json:"embed_spec"` // "provider/model" for the HTTP backend
	EmbedEndpoint ResolvedValue `json:"embed_endpoint"`
	EmbedAPIKey   ResolvedValue `json:"embed_api_key"`
	ONNXModelPath ResolvedValue `json:"onnx_model_path"`
	ONNXVocabPath ResolvedValue `json:"onnx_vocab_path"`

	LexicalThreshold  ResolvedValue `json:"lexical_threshold"`
	SemanticThreshold ResolvedValue `json:"semantic_threshold"`
	CandidatePool     ResolvedValue `json:"candidate_pool"`
	LayoutNodeCap     ResolvedValue `json:"layout_node_cap"`
}

type fileConfig struct {
	DBPath string `yaml:"db_path"`
	Embed  struct {
		Spec     string `yaml:"spec"`
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
		Model    string `yaml:"onnx_model"`
		Vocab    string `yaml:"onnx_vocab"`
	} `yaml:"embed"`
	Engine struct {
		LexicalThreshold  string `yaml:"lexical_threshold"`
		SemanticThreshold string `yaml:"semantic_threshold"`
		CandidatePool     string `yaml:"candidate_pool"`
		LayoutNodeCap     string `yaml:"layout_node_cap"`
	} `yaml:"engine"`
}

// DefaultConfigPath is ~/.thinktank/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".thinktank", "config.yaml")
}

// Resolve merges all sources. Missing config files are not an error.
func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.EmbedSpec, cfg.Embed.Spec, SourceConfig, path)
		apply(&out.EmbedEndpoint, cfg.Embed.Endpoint, SourceConfig, path)
		apply(&out.EmbedAPIKey, cfg.Embed.APIKey, SourceConfig, path)
		apply(&out.ONNXModelPath, cfg.Embed.Model, SourceConfig, path)
		apply(&out.ONNXVocabPath, cfg.Embed.Vocab, SourceConfig, path)
		apply(&out.LexicalThreshold, cfg.Engine.LexicalThreshold, SourceConfig, path)
		apply(&out.SemanticThreshold, cfg.Engine.SemanticThreshold, SourceConfig, path)
		apply(&out.CandidatePool, cfg.Engine.CandidatePool, SourceConfig, path)
		apply(&out.LayoutNodeCap, cfg.Engine.LayoutNodeCap, SourceConfig, path)
	}

	applyEnv(&out.DBPath, "THINKTANK_DB")
	applyEnv(&out.EmbedSpec, "THINKTANK_EMBED")
	applyEnv(&out.EmbedEndpoint, "THINKTANK_EMBED_ENDPOINT")
	applyEnv(&out.EmbedAPIKey, "THINKTANK_EMBED_API_KEY")
	applyEnv(&out.ONNXModelPath, "THINKTANK_ONNX_MODEL")
	applyEnv(&out.ONNXVocabPath, "THINKTANK_ONNX_VOCAB")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "flag")
	apply(&out.EmbedSpec, opts.CLIEmbed, SourceCLI, "flag")
	apply(&out.ONNXModelPath, opts.CLIModel, SourceCLI, "flag")
	apply(&out.ONNXVocabPath, opts.CLIVocab, SourceCLI, "flag")

	setDefault(&out.DBPath, "")
	setDefault(&out.LexicalThreshold, "0.25")
	setDefault(&out.SemanticThreshold, "0.72")
	setDefault(&out.CandidatePool, "200")
	setDefault(&out.LayoutNodeCap, "400")

	return out, nil
}

// Float parses a resolved value as float64, falling back when unset or
// malformed.
func (v ResolvedValue) Float(fallback float64) float64 {
	if v.Value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v.Value, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Int parses a resolved value as int, falling back when unset or
// malformed.
func (v ResolvedValue) Int(fallback int) int {
	if v.Value == "" {
		return fallback
	}
	n, err := strconv.Atoi(v.Value)
	if err != nil {
		return fallback
	}
	return n
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &fileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// apply overwrites the target when value is non-empty. Later calls win,
// so callers order them lowest to highest priority.
func apply(target *ResolvedValue, value string, source ValueSource, from string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	target.Value = value
	target.Source = source
	target.From = from
}

func applyEnv(target *ResolvedValue, key string) {
	apply(target, os.Getenv(key), SourceEnv, key)
}

func setDefault(target *ResolvedValue, value string) {
	if target.Source == "" || target.Source == SourceUnknown {
		target.Value = value
		target.Source = SourceDefault
	}
}
