package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/rizkyguvio/ThinkTank/internal/graph"
)

func pairGraph(ids ...string) GraphData {
	adj := make(graph.Adjacency)
	var nodeIDs []string
	seen := make(map[string]struct{})
	for i := 0; i+1 < len(ids); i += 2 {
		a, b := ids[i], ids[i+1]
		for _, id := range []string{a, b} {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				nodeIDs = append(nodeIDs, id)
			}
			if adj[id] == nil {
				adj[id] = make(map[string]struct{})
			}
		}
		adj[a][b] = struct{}{}
		adj[b][a] = struct{}{}
	}
	return GraphData{NodeIDs: nodeIDs, Adjacency: adj}
}

func TestConfigurePlacesNodesInBounds(t *testing.T) {
	e := NewEngine(Config{}, 42)
	e.Configure(pairGraph("a", "b"))

	nodes := e.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
	for _, n := range nodes {
		if n.Position.X < e.cfg.Margin || n.Position.X > e.cfg.Width-e.cfg.Margin {
			t.Errorf("node %s x=%v out of bounds", n.ID, n.Position.X)
		}
		if n.Position.Y < e.cfg.Margin || n.Position.Y > e.cfg.Height-e.cfg.Margin {
			t.Errorf("node %s y=%v out of bounds", n.ID, n.Position.Y)
		}
	}
}

func TestTwoNodeGraphSettles(t *testing.T) {
	e := NewEngine(Config{}, 42)
	e.Configure(pairGraph("a", "b"))

	ticks := 0
	for !e.Settled() && ticks < 1000 {
		e.Tick()
		ticks++
	}
	if !e.Settled() {
		t.Fatal("simulation never settled")
	}
	if ticks >= 200 {
		t.Errorf("settled after %d ticks, want < 200", ticks)
	}
}

func TestSettledTickIsNoop(t *testing.T) {
	e := NewEngine(Config{}, 42)
	e.Configure(pairGraph("a", "b"))
	for !e.Settled() {
		e.Tick()
	}

	before := map[string]Vec{}
	for _, n := range e.Nodes() {
		before[n.ID] = n.Position
	}
	if energy := e.Tick(); energy != 0 {
		t.Errorf("settled tick returned energy %v", energy)
	}
	for _, n := range e.Nodes() {
		if n.Position != before[n.ID] {
			t.Errorf("node %s moved while settled", n.ID)
		}
	}
}

func TestWakeRestartsSimulation(t *testing.T) {
	e := NewEngine(Config{}, 42)
	e.Configure(pairGraph("a", "b"))
	for !e.Settled() {
		e.Tick()
	}

	e.Wake()
	if e.Settled() {
		t.Error("still settled after Wake")
	}
}

func TestConfigureKeepsExistingPositions(t *testing.T) {
	e := NewEngine(Config{}, 42)
	e.Configure(pairGraph("a", "b"))
	for i := 0; i < 20; i++ {
		e.Tick()
	}

	positions := map[string]Vec{}
	for _, n := range e.Nodes() {
		positions[n.ID] = n.Position
	}

	// Adding a node must not teleport the survivors.
	e.Configure(pairGraph("a", "b", "b", "c"))
	for _, n := range e.Nodes() {
		if n.ID == "c" {
			continue
		}
		if n.Position != positions[n.ID] {
			t.Errorf("node %s moved during Configure", n.ID)
		}
	}
	if e.Settled() {
		t.Error("membership change did not wake the simulation")
	}
}

func TestConfigureDropsAbsentNodes(t *testing.T) {
	e := NewEngine(Config{}, 42)
	e.Configure(pairGraph("a", "b", "b", "c"))
	e.Configure(pairGraph("a", "b"))

	nodes := e.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
	for _, n := range nodes {
		if n.ID == "c" {
			t.Error("dropped node still present")
		}
	}
}

func TestConfigureRefreshesDisplayAttributes(t *testing.T) {
	e := NewEngine(Config{}, 42)
	data := pairGraph("a", "b")
	data.Centrality = map[string]float64{"a": 1, "b": 0.5}
	data.CoreIDs = []string{"a"}
	data.Clusters = [][]string{{"a", "b"}}
	e.Configure(data)

	for _, n := range e.Nodes() {
		switch n.ID {
		case "a":
			if n.Centrality != 1 || !n.InCore || n.ClusterIndex != 0 {
				t.Errorf("a = %+v", n)
			}
		case "b":
			if n.Centrality != 0.5 || n.InCore {
				t.Errorf("b = %+v", n)
			}
		}
	}

	// Unclustered nodes get index -1.
	solo := GraphData{NodeIDs: []string{"x"}}
	e.Configure(solo)
	if n := e.Nodes()[0]; n.ClusterIndex != -1 {
		t.Errorf("unclustered index = %d, want -1", n.ClusterIndex)
	}
}

func TestNodeCapLimitsSimulation(t *testing.T) {
	e := NewEngine(Config{NodeCap: 3}, 42)

	ids := make([]string, 6)
	centrality := make(map[string]float64, 6)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%d", i)
		centrality[ids[i]] = float64(i)
	}
	e.Configure(GraphData{NodeIDs: ids, Centrality: centrality})

	if len(e.active) != 3 {
		t.Fatalf("active = %d nodes, want 3", len(e.active))
	}
	// Highest-centrality nodes simulate; the rest hold position.
	want := map[string]bool{"n5": true, "n4": true, "n3": true}
	for _, id := range e.active {
		if !want[id] {
			t.Errorf("low-centrality node %s active", id)
		}
	}

	held := e.nodes["n0"].Position
	for i := 0; i < 10; i++ {
		e.Tick()
	}
	if e.nodes["n0"].Position != held {
		t.Error("capped-out node moved")
	}
}

func TestRepulsionSeparatesCoincidentNodes(t *testing.T) {
	e := NewEngine(Config{}, 42)
	e.Configure(pairGraph("a", "b"))

	// Force both nodes onto the same point.
	center := Vec{X: e.cfg.Width / 2, Y: e.cfg.Height / 2}
	for _, n := range e.Nodes() {
		n.Position = center
		n.Velocity = Vec{}
	}

	e.Tick()
	a, b := e.nodes["a"], e.nodes["b"]
	dist := math.Hypot(a.Position.X-b.Position.X, a.Position.Y-b.Position.Y)
	if dist == 0 {
		t.Error("coincident nodes did not separate")
	}
}

func TestEnergyDecays(t *testing.T) {
	e := NewEngine(Config{}, 7)
	ids := []string{"a", "b", "b", "c", "c", "d"}
	e.Configure(pairGraph(ids...))

	var first, last float64
	for i := 0; i < 150; i++ {
		energy := e.Tick()
		if i == 5 {
			first = energy
		}
		last = energy
		if e.Settled() {
			break
		}
	}
	if !e.Settled() && last >= first {
		t.Errorf("energy did not decay: %v -> %v", first, last)
	}
}
