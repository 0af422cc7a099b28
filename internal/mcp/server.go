// Package mcp provides a Model Context Protocol server for ThinkTank.
//
// It exposes the analytics engine (capture, clusters, cognitive core,
// momentum, synthesis candidates, reprocess, layout frames, stats) as
// MCP tools over stdio, for agent hosts that want to read or extend a
// user's idea graph.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rizkyguvio/ThinkTank/internal/layout"
	"github.com/rizkyguvio/ThinkTank/internal/pipeline"
	"github.com/rizkyguvio/ThinkTank/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store     store.Store
	Engine    *pipeline.Engine
	Version   string
	LayoutCfg layout.Config
}

// dbMu serializes all tool calls that touch the database. The mcp-go
// library dispatches handlers concurrently via goroutines; SQLite
// supports only one writer at a time, and the layout session below is a
// single-threaded stepper by contract.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all ThinkTank tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"ThinkTank",
		ver,
		server.WithToolCapabilities(false),
	)

	// The MCP session owns its render loop, so it owns a layout engine.
	layoutEngine := layout.NewEngine(cfg.LayoutCfg, 0)

	registerCaptureTool(s, cfg.Engine)
	registerClustersTool(s, cfg.Engine)
	registerCoreTool(s, cfg.Engine)
	registerMomentumTool(s, cfg.Engine)
	registerSynthesisTool(s, cfg.Engine)
	registerReprocessTool(s, cfg.Engine)
	registerLayoutTool(s, cfg.Engine, layoutEngine)
	registerStatsTool(s, cfg.Store)

	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func registerCaptureTool(s *server.MCPServer, engine *pipeline.Engine) {
	tool := mcp.NewTool("capture_idea",
		mcp.WithDescription("Capture a new idea. The raw text is stored immediately and enriched (keywords, tags, similarity edges) before returning."),
		mcp.WithString("content", mcp.Required(),
			mcp.Description("The idea text to capture"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		content, err := req.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError("content is required"), nil
		}

		idea, err := engine.CaptureAndEnrich(ctx, content)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("capture error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"id":       idea.ID,
			"tags":     idea.Tags,
			"keywords": idea.Keywords,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerClustersTool(s *server.MCPServer, engine *pipeline.Engine) {
	tool := mcp.NewTool("list_clusters",
		mcp.WithDescription("List connected clusters of the idea similarity graph, largest first, with per-idea degree centrality."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		snap, err := engine.LoadSnapshot(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list_clusters error: %v", err)), nil
		}

		type clusterOut struct {
			Size    int      `json:"size"`
			IdeaIDs []string `json:"idea_ids"`
		}
		out := make([]clusterOut, 0, len(snap.Clusters))
		for _, c := range snap.Clusters {
			out = append(out, clusterOut{Size: len(c), IdeaIDs: c})
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"clusters":   out,
			"centrality": snap.Centrality,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerCoreTool(s *server.MCPServer, engine *pipeline.Engine) {
	tool := mcp.NewTool("cognitive_core",
		mcp.WithDescription("Return the cognitive core: the cluster with the highest semantic density × ln(size) score, or null when no clusters exist."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		snap, err := engine.LoadSnapshot(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cognitive_core error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(snap.Core, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerMomentumTool(s *server.MCPServer, engine *pipeline.Engine) {
	tool := mcp.NewTool("momentum_signals",
		mcp.WithDescription("Detect emerging themes (accelerating recent semantic density) and fading themes (collapsed weekly counts). Flagging a theme emerging starts its 14-day cooldown."),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		emerging, fading, err := engine.MomentumSignals(ctx, time.Now().UTC())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("momentum error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"emerging": emerging,
			"fading":   fading,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerSynthesisTool(s *server.MCPServer, engine *pipeline.Engine) {
	tool := mcp.NewTool("synthesis_candidates",
		mcp.WithDescription("Find missed connections: pairs among the largest clusters with zero cross-edges, each with a representative idea per side."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		candidates, err := engine.SynthesisCandidates(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("synthesis error: %v", err)), nil
		}

		type side struct {
			Size    int    `json:"size"`
			IdeaID  string `json:"idea_id"`
			Content string `json:"content"`
		}
		type pairOut struct {
			A side `json:"a"`
			B side `json:"b"`
		}
		out := make([]pairOut, 0, len(candidates))
		for _, c := range candidates {
			p := pairOut{
				A: side{Size: len(c.ClusterA)},
				B: side{Size: len(c.ClusterB)},
			}
			if c.RepresentativeA != nil {
				p.A.IdeaID = c.RepresentativeA.ID
				p.A.Content = c.RepresentativeA.Content
			}
			if c.RepresentativeB != nil {
				p.B.IdeaID = c.RepresentativeB.ID
				p.B.Content = c.RepresentativeB.Content
			}
			out = append(out, p)
		}

		data, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerReprocessTool(s *server.MCPServer, engine *pipeline.Engine) {
	tool := mcp.NewTool("reprocess_all",
		mcp.WithDescription("Clear all derived theme and edge data and rebuild it by replaying enrichment over every idea in creation order. Long-running."),
		mcp.WithDestructiveHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		result, err := engine.ReprocessAll(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reprocess error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"processed":   result.Processed,
			"failed":      result.Failed,
			"duration_ms": result.Duration.Milliseconds(),
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerLayoutTool(s *server.MCPServer, engine *pipeline.Engine, layoutEngine *layout.Engine) {
	tool := mcp.NewTool("layout_frame",
		mcp.WithDescription("Advance the force-directed layout and return 2-D positions for active ideas. Reconfigures from the current graph, then ticks until settled or the tick budget runs out."),
		mcp.WithNumber("max_ticks",
			mcp.Description("Tick budget for this call (default: 120)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		maxTicks := 120
		if v, err := req.RequireFloat("max_ticks"); err == nil && v > 0 {
			maxTicks = int(v)
		}

		snap, err := engine.LoadSnapshot(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("layout error: %v", err)), nil
		}

		// Archived ideas stay in the corpus but not on the canvas.
		visible := make([]string, 0, len(snap.Ideas))
		for _, idea := range snap.Ideas {
			if idea.Status != store.StatusArchived {
				visible = append(visible, idea.ID)
			}
		}

		var coreIDs []string
		if snap.Core != nil {
			coreIDs = snap.Core.ClusterIDs
		}
		layoutEngine.Configure(layout.GraphData{
			NodeIDs:    visible,
			Adjacency:  snap.Adjacency,
			Centrality: snap.Centrality,
			CoreIDs:    coreIDs,
			Clusters:   snap.Clusters,
		})

		ticks := 0
		for ; ticks < maxTicks && !layoutEngine.Settled(); ticks++ {
			layoutEngine.Tick()
		}

		type nodeOut struct {
			ID           string  `json:"id"`
			X            float64 `json:"x"`
			Y            float64 `json:"y"`
			Centrality   float64 `json:"centrality"`
			InCore       bool    `json:"in_core"`
			ClusterIndex int     `json:"cluster_index"`
		}
		nodes := layoutEngine.Nodes()
		out := make([]nodeOut, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, nodeOut{
				ID:           n.ID,
				X:            n.Position.X,
				Y:            n.Position.Y,
				Centrality:   n.Centrality,
				InCore:       n.InCore,
				ClusterIndex: n.ClusterIndex,
			})
		}

		data, _ := json.MarshalIndent(map[string]interface{}{
			"nodes":   out,
			"ticks":   ticks,
			"settled": layoutEngine.Settled(),
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("corpus_stats",
		mcp.WithDescription("Aggregate counts: ideas by status, themes, edges, embeddings, database size."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(stats, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}
