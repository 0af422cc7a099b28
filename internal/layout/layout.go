// Package layout turns the idea graph into stable 2-D positions via a
// force-directed simulation: pairwise repulsion, quadratic spring
// attraction along edges, centering gravity, and velocity damping.
//
// The simulation is a single-threaded stepper owned by whatever runs
// the render loop. Tick is meant to be called once per frame until the
// total kinetic energy decays below the settle threshold; it then goes
// dormant until the graph changes or Wake is called.
package layout

import (
	"math"
	"math/rand"

	"github.com/rizkyguvio/ThinkTank/internal/graph"
)

// DefaultNodeCap bounds how many nodes participate in force computation
// per tick. Above the cap only the highest-centrality subset simulates;
// the rest hold their last position. A safety valve against O(n²).
const DefaultNodeCap = 400

// Config holds the physics constants. Zero values fall back to the
// defaults below.
type Config struct {
	Width              float64
	Height             float64
	RepulsionStrength  float64
	AttractionStrength float64
	GravityStrength    float64
	Damping            float64
	SettleThreshold    float64
	Margin             float64
	NodeCap            int
}

// DefaultConfig returns constants tuned for a few hundred nodes on a
// roughly screen-sized canvas.
func DefaultConfig() Config {
	return Config{
		Width:              1200,
		Height:             800,
		RepulsionStrength:  6000,
		AttractionStrength: 0.000045,
		GravityStrength:    0.012,
		Damping:            0.85,
		SettleThreshold:    0.05,
		Margin:             24,
		NodeCap:            DefaultNodeCap,
	}
}

// Vec is a 2-D vector.
type Vec struct {
	X, Y float64
}

// Node is per-session layout state for one idea, plus read-only display
// attributes refreshed on every Configure.
type Node struct {
	ID           string
	Position     Vec
	Velocity     Vec
	Centrality   float64
	InCore       bool
	ClusterIndex int // -1 when unclustered

	force Vec
}

// GraphData is the graph snapshot the layout consumes.
type GraphData struct {
	NodeIDs    []string
	Adjacency  graph.Adjacency
	Centrality map[string]float64
	CoreIDs    []string
	Clusters   [][]string
}

// Engine is the layout simulation. Not safe for concurrent use; callers
// must serialize Configure against in-flight Ticks.
type Engine struct {
	cfg       Config
	nodes     map[string]*Node
	order     []string // stable iteration order
	active    []string // nodes simulated this tick (post cap)
	adjacency graph.Adjacency
	settled   bool
	rng       *rand.Rand
}

// NewEngine creates a layout engine. seed fixes node placement for
// reproducible tests; pass 0 for nondeterministic placement.
func NewEngine(cfg Config, seed int64) *Engine {
	defaults := DefaultConfig()
	if cfg.Width <= 0 {
		cfg.Width = defaults.Width
	}
	if cfg.Height <= 0 {
		cfg.Height = defaults.Height
	}
	if cfg.RepulsionStrength <= 0 {
		cfg.RepulsionStrength = defaults.RepulsionStrength
	}
	if cfg.AttractionStrength <= 0 {
		cfg.AttractionStrength = defaults.AttractionStrength
	}
	if cfg.GravityStrength <= 0 {
		cfg.GravityStrength = defaults.GravityStrength
	}
	if cfg.Damping <= 0 || cfg.Damping >= 1 {
		cfg.Damping = defaults.Damping
	}
	if cfg.SettleThreshold <= 0 {
		cfg.SettleThreshold = defaults.SettleThreshold
	}
	if cfg.Margin <= 0 {
		cfg.Margin = defaults.Margin
	}
	if cfg.NodeCap <= 0 {
		cfg.NodeCap = defaults.NodeCap
	}

	src := rand.NewSource(seed)
	if seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Engine{
		cfg:   cfg,
		nodes: make(map[string]*Node),
		rng:   rand.New(src),
	}
}

// Configure merges a fresh graph snapshot into layout state. Existing
// nodes keep position and velocity for visual continuity; new nodes are
// placed at a random canvas position; nodes gone from the graph are
// dropped. Always wakes the simulation when membership changed.
func (e *Engine) Configure(data GraphData) {
	present := make(map[string]struct{}, len(data.NodeIDs))
	changed := false

	clusterIndex := make(map[string]int)
	for i, cluster := range data.Clusters {
		for _, id := range cluster {
			clusterIndex[id] = i
		}
	}
	inCore := make(map[string]struct{}, len(data.CoreIDs))
	for _, id := range data.CoreIDs {
		inCore[id] = struct{}{}
	}

	e.order = e.order[:0]
	for _, id := range data.NodeIDs {
		present[id] = struct{}{}
		e.order = append(e.order, id)

		node, exists := e.nodes[id]
		if !exists {
			node = &Node{
				ID: id,
				Position: Vec{
					X: e.cfg.Margin + e.rng.Float64()*(e.cfg.Width-2*e.cfg.Margin),
					Y: e.cfg.Margin + e.rng.Float64()*(e.cfg.Height-2*e.cfg.Margin),
				},
			}
			e.nodes[id] = node
			changed = true
		}

		node.Centrality = data.Centrality[id]
		_, node.InCore = inCore[id]
		if idx, ok := clusterIndex[id]; ok {
			node.ClusterIndex = idx
		} else {
			node.ClusterIndex = -1
		}
	}

	for id := range e.nodes {
		if _, ok := present[id]; !ok {
			delete(e.nodes, id)
			changed = true
		}
	}

	e.adjacency = data.Adjacency
	e.selectActive()
	if changed {
		e.settled = false
	}
}

// Wake restarts a settled simulation, e.g. after a drag interaction.
func (e *Engine) Wake() {
	e.settled = false
}

// Settled reports whether the simulation has gone dormant.
func (e *Engine) Settled() bool {
	return e.settled
}

// Nodes returns the current layout state in stable order.
func (e *Engine) Nodes() []*Node {
	out := make([]*Node, 0, len(e.order))
	for _, id := range e.order {
		if node, ok := e.nodes[id]; ok {
			out = append(out, node)
		}
	}
	return out
}

// selectActive picks the simulated subset: everything, or the top
// NodeCap nodes by centrality when over the cap.
func (e *Engine) selectActive() {
	e.active = e.active[:0]
	if len(e.order) <= e.cfg.NodeCap {
		e.active = append(e.active, e.order...)
		return
	}

	ranked := make([]string, len(e.order))
	copy(ranked, e.order)
	// Partial selection sort is fine: runs only on membership change.
	for i := 0; i < e.cfg.NodeCap; i++ {
		best := i
		for j := i + 1; j < len(ranked); j++ {
			if e.nodes[ranked[j]].Centrality > e.nodes[ranked[best]].Centrality {
				best = j
			}
		}
		ranked[i], ranked[best] = ranked[best], ranked[i]
	}
	e.active = append(e.active, ranked[:e.cfg.NodeCap]...)
}

// minDistance floors pair distances to avoid the repulsion singularity.
const minDistance = 0.5

// Tick advances the simulation one step. A settled simulation returns
// immediately without moving anything. Returns the total kinetic energy
// after the step.
func (e *Engine) Tick() float64 {
	if e.settled || len(e.active) == 0 {
		return 0
	}

	for _, id := range e.active {
		e.nodes[id].force = Vec{}
	}

	e.applyRepulsion()
	e.applyAttraction()
	e.applyGravity()

	// Integrate and clamp.
	energy := 0.0
	for _, id := range e.active {
		node := e.nodes[id]
		node.Velocity.X = (node.Velocity.X + node.force.X) * e.cfg.Damping
		node.Velocity.Y = (node.Velocity.Y + node.force.Y) * e.cfg.Damping
		node.Position.X = clamp(node.Position.X+node.Velocity.X, e.cfg.Margin, e.cfg.Width-e.cfg.Margin)
		node.Position.Y = clamp(node.Position.Y+node.Velocity.Y, e.cfg.Margin, e.cfg.Height-e.cfg.Margin)
		energy += node.Velocity.X*node.Velocity.X + node.Velocity.Y*node.Velocity.Y
	}

	if energy < e.cfg.SettleThreshold {
		e.settled = true
	}
	return energy
}

// applyRepulsion pushes every simulated pair apart with magnitude
// repulsion/d², equal and opposite.
func (e *Engine) applyRepulsion() {
	for i := 0; i < len(e.active); i++ {
		a := e.nodes[e.active[i]]
		for j := i + 1; j < len(e.active); j++ {
			b := e.nodes[e.active[j]]

			dx := a.Position.X - b.Position.X
			dy := a.Position.Y - b.Position.Y
			dist := math.Hypot(dx, dy)
			if dist < minDistance {
				dist = minDistance
				// Coincident nodes get a deterministic nudge axis.
				dx, dy = 1, 0
			}

			magnitude := e.cfg.RepulsionStrength / (dist * dist)
			fx := magnitude * dx / dist
			fy := magnitude * dy / dist

			a.force.X += fx
			a.force.Y += fy
			b.force.X -= fx
			b.force.Y -= fy
		}
	}
}

// applyAttraction pulls edge endpoints together with magnitude
// d² × attraction: the quadratic spring makes long edges pull harder.
func (e *Engine) applyAttraction() {
	for _, id := range e.active {
		a := e.nodes[id]
		for neighborID := range e.adjacency[id] {
			b, simulated := e.nodes[neighborID]
			if !simulated {
				continue
			}

			dx := b.Position.X - a.Position.X
			dy := b.Position.Y - a.Position.Y
			dist := math.Hypot(dx, dy)
			if dist < minDistance {
				continue
			}

			// Each direction of the symmetrized adjacency applies its
			// own pull, so the pair effect is symmetric.
			magnitude := dist * dist * e.cfg.AttractionStrength
			a.force.X += magnitude * dx / dist
			a.force.Y += magnitude * dy / dist
		}
	}
}

// applyGravity pulls every node toward the canvas center.
func (e *Engine) applyGravity() {
	cx, cy := e.cfg.Width/2, e.cfg.Height/2
	for _, id := range e.active {
		node := e.nodes[id]
		node.force.X += e.cfg.GravityStrength * (cx - node.Position.X)
		node.force.Y += e.cfg.GravityStrength * (cy - node.Position.Y)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
