package graph

import (
	"fmt"
	"sort"
)

// Connection is a directed edge from one node's output pad to another
// node's input pad (spec.md §3). Each input pad accepts at most one
// connection; an output pad may fan out to many.
type Connection struct {
	FromNode string
	FromPad  int
	ToNode   string
	ToPad    int
}

// Graph holds the node set and connection set and derives the
// topological processing order (spec.md §4.1: "hardware-source nodes
// first, then intermediate nodes in topological order with ties broken
// by creation order, then hardware-sink nodes").
type Graph struct {
	nodes       map[string]*Node
	order       []string // insertion order, for creation-order tie-break
	connections []Connection

	// incoming[toNode][toPad] = Connection
	incoming map[string]map[int]Connection
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		incoming: make(map[string]map[int]Connection),
	}
}

// AddNode registers a node under its Name. Names must be unique.
func (g *Graph) AddNode(n *Node) error {
	if _, exists := g.nodes[n.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, n.Name)
	}
	n.createdOrder = len(g.order)
	g.nodes[n.Name] = n
	g.order = append(g.order, n.Name)
	g.incoming[n.Name] = make(map[int]Connection)
	return nil
}

// Node looks up a node by name.
func (g *Graph) Node(name string) (*Node, error) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}
	return n, nil
}

// Connect wires fromNode's output pad fromPad to toNode's input pad
// toPad. Rejects an already-occupied input pad and any edge that would
// create a cycle (spec.md §3 invariant: the graph is a DAG).
func (g *Graph) Connect(fromNode string, fromPad int, toNode string, toPad int) error {
	from, err := g.Node(fromNode)
	if err != nil {
		return err
	}
	to, err := g.Node(toNode)
	if err != nil {
		return err
	}
	if fromPad < 0 || fromPad >= from.OutputPadCount() {
		return fmt.Errorf("%w: %q output pad %d", ErrPadIndexOutOfRange, fromNode, fromPad)
	}
	if toPad < 0 || toPad >= to.InputPadCount() {
		return fmt.Errorf("%w: %q input pad %d", ErrPadIndexOutOfRange, toNode, toPad)
	}
	if _, taken := g.incoming[toNode][toPad]; taken {
		return fmt.Errorf("%w: %q input pad %d", ErrPadAlreadyConnected, toNode, toPad)
	}

	conn := Connection{FromNode: fromNode, FromPad: fromPad, ToNode: toNode, ToPad: toPad}
	g.connections = append(g.connections, conn)
	g.incoming[toNode][toPad] = conn

	if _, err := g.topologicalOrder(); err != nil {
		// Roll back: this edge would create a cycle.
		g.connections = g.connections[:len(g.connections)-1]
		delete(g.incoming[toNode], toPad)
		return err
	}
	return nil
}

// Disconnect removes the connection feeding toNode's input pad toPad,
// if any.
func (g *Graph) Disconnect(toNode string, toPad int) {
	delete(g.incoming[toNode], toPad)
	for i, c := range g.connections {
		if c.ToNode == toNode && c.ToPad == toPad {
			g.connections = append(g.connections[:i], g.connections[i+1:]...)
			return
		}
	}
}

// Incoming returns the connection feeding toNode's input pad toPad, and
// whether one exists.
func (g *Graph) Incoming(toNode string, toPad int) (Connection, bool) {
	c, ok := g.incoming[toNode][toPad]
	return c, ok
}

// topologicalOrder returns all node names in dependency order (a
// producer always precedes every node that consumes one of its
// outputs), with ties between independent nodes broken by creation
// order. Returns ErrWouldCreateCycle if the connection set is not a DAG.
func (g *Graph) topologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for name := range g.nodes {
		indegree[name] = 0
	}
	for _, c := range g.connections {
		indegree[c.ToNode]++
		dependents[c.FromNode] = append(dependents[c.FromNode], c.ToNode)
	}

	var ready []string
	for _, name := range g.order {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return g.nodes[ready[i]].createdOrder < g.nodes[ready[j]].createdOrder })

	var result []string
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		result = append(result, next)

		var newlyReady []string
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				newlyReady = append(newlyReady, dep)
			}
		}
		sort.Slice(newlyReady, func(i, j int) bool {
			return g.nodes[newlyReady[i]].createdOrder < g.nodes[newlyReady[j]].createdOrder
		})
		ready = append(ready, newlyReady...)
		sort.Slice(ready, func(i, j int) bool { return g.nodes[ready[i]].createdOrder < g.nodes[ready[j]].createdOrder })
	}

	if len(result) != len(g.nodes) {
		return nil, ErrWouldCreateCycle
	}
	return result, nil
}

// ProcessOrder returns the schedule for one tick: hardware-source nodes
// first, then every other kind in topological/creation-order, then
// hardware-sink nodes last (spec.md §4.1). file_source nodes sort with
// the intermediate group since they only observe, not pull live
// hardware; file_sink nodes likewise sort as intermediate-or-last since
// they only enqueue.
func (g *Graph) ProcessOrder() ([]string, error) {
	topo, err := g.topologicalOrder()
	if err != nil {
		return nil, err
	}
	var sources, middle, sinks []string
	for _, name := range topo {
		switch g.nodes[name].Kind {
		case KindHardwareSource:
			sources = append(sources, name)
		case KindHardwareSink:
			sinks = append(sinks, name)
		default:
			middle = append(middle, name)
		}
	}
	out := make([]string, 0, len(topo))
	out = append(out, sources...)
	out = append(out, middle...)
	out = append(out, sinks...)
	return out, nil
}
