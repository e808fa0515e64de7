package extensions

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/m1gwings/treedrawer/tree"

	observe "github.com/substrate-fn/observe"
)

// GraphDumpHook renders the live dependency graph when a recompute
// failure is contained, so the silent-containment policy does not leave
// operators blind about where a broken closure sits in the graph.
//
// Usage:
//
//	hook := extensions.NewGraphDumpHook(slog.NewTextHandler(os.Stderr, nil))
//	m := observe.New(observe.WithHook(hook))
type GraphDumpHook struct {
	observe.BaseHook
	logger *slog.Logger
	mgr    *observe.Manager
}

// NewGraphDumpHook creates a graph dump hook logging to the given
// handler.
func NewGraphDumpHook(handler slog.Handler) *GraphDumpHook {
	return &GraphDumpHook{
		BaseHook: observe.NewBaseHook("graph-dump"),
		logger:   slog.New(handler),
	}
}

func (h *GraphDumpHook) Init(m *observe.Manager) {
	h.mgr = m
}

func (h *GraphDumpHook) OnRecompute(ev observe.RecomputeEvent) {
	if ev.Err == nil {
		return
	}
	h.logger.Error("recompute failed",
		"node", ev.Node.Name,
		"error", ev.Err,
		"graph", DrawGraph(h.mgr),
	)
}

// DrawGraph renders the manager's dependency graph, one drawn tree per
// root, downstream edges as children. Shared and cyclic dependents are
// expanded once and referenced by name after that.
func DrawGraph(m *observe.Manager) string {
	graph := m.Graph()
	if len(graph) == 0 {
		return "(empty)"
	}

	adjacency := make(map[uint64][]observe.NodeInfo, len(graph))
	var roots []observe.NodeInfo
	for _, gn := range graph {
		children := gn.Downstream
		sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
		adjacency[gn.Info.ID] = children
		if gn.Root {
			roots = append(roots, gn.Info)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].ID < roots[j].ID })

	out := ""
	for _, root := range roots {
		t := tree.NewTree(tree.NodeString(root.Name))
		expand(t, root, adjacency, map[uint64]bool{root.ID: true})
		out += fmt.Sprintf("%v\n", t)
	}
	return out
}

func expand(t *tree.Tree, info observe.NodeInfo, adjacency map[uint64][]observe.NodeInfo, seen map[uint64]bool) {
	for i, child := range adjacency[info.ID] {
		if seen[child.ID] {
			t.AddChild(tree.NodeString(child.Name + " (see above)"))
			continue
		}
		seen[child.ID] = true
		t.AddChild(tree.NodeString(child.Name))
		sub, err := t.Child(i)
		if err != nil {
			continue
		}
		expand(sub, child, adjacency, seen)
	}
}
