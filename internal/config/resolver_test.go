package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestResolveDefaults(t *testing.T) {
	// Missing config file is not an error.
	resolved, err := Resolve(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "nope.yaml"),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if resolved.LexicalThreshold.Value != "0.25" || resolved.LexicalThreshold.Source != SourceDefault {
		t.Errorf("lexical threshold = %+v", resolved.LexicalThreshold)
	}
	if resolved.SemanticThreshold.Value != "0.72" {
		t.Errorf("semantic threshold = %+v", resolved.SemanticThreshold)
	}
	if resolved.CandidatePool.Value != "200" || resolved.LayoutNodeCap.Value != "400" {
		t.Errorf("pool = %+v, cap = %+v", resolved.CandidatePool, resolved.LayoutNodeCap)
	}
	if resolved.EmbedSpec.Value != "" {
		t.Errorf("embed spec defaulted to %+v", resolved.EmbedSpec)
	}
}

func TestResolveFromConfigFile(t *testing.T) {
	path := writeConfig(t, `
db_path: /tmp/ideas.db
embed:
  spec: ollama/nomic-embed-text
engine:
  lexical_threshold: "0.15"
`)

	resolved, err := Resolve(ResolveOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if resolved.DBPath.Value != "/tmp/ideas.db" || resolved.DBPath.Source != SourceConfig {
		t.Errorf("db path = %+v", resolved.DBPath)
	}
	if resolved.DBPath.From != path {
		t.Errorf("db path from = %q, want %q", resolved.DBPath.From, path)
	}
	if resolved.EmbedSpec.Value != "ollama/nomic-embed-text" {
		t.Errorf("embed spec = %+v", resolved.EmbedSpec)
	}
	if resolved.LexicalThreshold.Value != "0.15" {
		t.Errorf("lexical threshold = %+v", resolved.LexicalThreshold)
	}
	// Untouched values still fall back.
	if resolved.SemanticThreshold.Source != SourceDefault {
		t.Errorf("semantic threshold source = %v", resolved.SemanticThreshold.Source)
	}
}

func TestResolveEnvOverridesConfig(t *testing.T) {
	path := writeConfig(t, "db_path: /from/config.db\n")
	t.Setenv("THINKTANK_DB", "/from/env.db")

	resolved, err := Resolve(ResolveOptions{ConfigPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if resolved.DBPath.Value != "/from/env.db" || resolved.DBPath.Source != SourceEnv {
		t.Errorf("db path = %+v", resolved.DBPath)
	}
	if resolved.DBPath.From != "THINKTANK_DB" {
		t.Errorf("db path from = %q", resolved.DBPath.From)
	}
}

func TestResolveCLIOverridesEverything(t *testing.T) {
	path := writeConfig(t, "db_path: /from/config.db\n")
	t.Setenv("THINKTANK_DB", "/from/env.db")

	resolved, err := Resolve(ResolveOptions{
		ConfigPath: path,
		CLIDBPath:  "/from/flag.db",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resolved.DBPath.Value != "/from/flag.db" || resolved.DBPath.Source != SourceCLI {
		t.Errorf("db path = %+v", resolved.DBPath)
	}
}

func TestResolveMalformedConfig(t *testing.T) {
	path := writeConfig(t, "db_path: [broken\n")
	if _, err := Resolve(ResolveOptions{ConfigPath: path}); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestResolvedValueParsers(t *testing.T) {
	if got := (ResolvedValue{Value: "0.5"}).Float(9); got != 0.5 {
		t.Errorf("Float = %v", got)
	}
	if got := (ResolvedValue{}).Float(9); got != 9 {
		t.Errorf("empty Float = %v", got)
	}
	if got := (ResolvedValue{Value: "junk"}).Float(9); got != 9 {
		t.Errorf("malformed Float = %v", got)
	}
	if got := (ResolvedValue{Value: "42"}).Int(7); got != 42 {
		t.Errorf("Int = %v", got)
	}
	if got := (ResolvedValue{Value: "4.2"}).Int(7); got != 7 {
		t.Errorf("malformed Int = %v", got)
	}
}
