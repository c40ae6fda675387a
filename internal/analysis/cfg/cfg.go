package cfg

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

// ErrCycle is returned by TopoOrder when the graph has a back edge.
var ErrCycle = errors.New("control-flow graph has a cycle")

// Exit is the synthetic node every returning block flows into.
const Exit = "EXIT"

// CFG is the block-level control-flow graph of a procedure body.
type CFG struct {
	Entry  string
	blocks []string
	succs  map[string][]string
	preds  map[string][]string
	cmds   map[string]int
}

// FromProcedure builds the graph of proc. Returning blocks get an edge to Exit.
func FromProcedure(proc *bpl.Procedure) *CFG {
	g := &CFG{
		succs: make(map[string][]string),
		preds: make(map[string][]string),
		cmds:  make(map[string]int),
	}
	if entry := proc.Entry(); entry != nil {
		g.Entry = entry.Label
	}
	for _, b := range proc.Blocks {
		g.blocks = append(g.blocks, b.Label)
		g.cmds[b.Label] = len(b.Cmds)
		targets := b.Successors()
		if _, ok := b.Transfer.(bpl.ReturnCmd); ok {
			targets = []string{Exit}
		}
		for _, t := range targets {
			g.succs[b.Label] = append(g.succs[b.Label], t)
			g.preds[t] = append(g.preds[t], b.Label)
		}
	}
	return g
}

// Blocks returns block labels in declaration order.
func (g *CFG) Blocks() []string {
	return g.blocks
}

func (g *CFG) Succs(label string) []string {
	return g.succs[label]
}

func (g *CFG) Preds(label string) []string {
	return g.preds[label]
}

// Reachable returns the set of blocks reachable from the entry.
func (g *CFG) Reachable() map[string]bool {
	seen := make(map[string]bool)
	var visit func(string)
	visit = func(l string) {
		if seen[l] || l == Exit {
			return
		}
		seen[l] = true
		for _, s := range g.succs[l] {
			visit(s)
		}
	}
	if g.Entry != "" {
		visit(g.Entry)
	}
	return seen
}

// TopoOrder returns the reachable blocks in topological order, or ErrCycle.
func (g *CFG) TopoOrder() ([]string, error) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int)
	var order []string
	var visit func(string) error
	visit = func(l string) error {
		switch color[l] {
		case grey:
			return fmt.Errorf("%w: back edge to %q", ErrCycle, l)
		case black:
			return nil
		}
		color[l] = grey
		for _, s := range g.succs[l] {
			if s == Exit {
				continue
			}
			if err := visit(s); err != nil {
				return err
			}
		}
		color[l] = black
		order = append(order, l)
		return nil
	}
	if g.Entry != "" {
		if err := visit(g.Entry); err != nil {
			return nil, err
		}
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// PrintDot writes the graph in GraphViz format. Nodes are labeled with
// the block label and its command count.
func (g *CFG) PrintDot(w io.Writer) {
	fmt.Fprintln(w, "digraph mgraph {")
	fmt.Fprintln(w, "\tmode=\"heir\";")
	fmt.Fprintln(w, "\tsplines=\"ortho\";")
	fmt.Fprintln(w)
	if g.Entry != "" {
		fmt.Fprintf(w, "\t\"ENTRY\" -> %q\n", g.node(g.Entry))
	}
	for _, b := range g.blocks {
		for _, s := range g.succs[b] {
			fmt.Fprintf(w, "\t%q -> %q\n", g.node(b), g.node(s))
		}
	}
	fmt.Fprintln(w, "}")
}

func (g *CFG) node(label string) string {
	if label == Exit {
		return Exit
	}
	return fmt.Sprintf("%s (%d cmds)", label, g.cmds[label])
}

// RenderToGraphVizFile renders dot source with the `dot` tool. The output
// format is taken from the file extension (png when there is none).
func RenderToGraphVizFile(dot []byte, output string) error {
	format := strings.TrimPrefix(filepath.Ext(output), ".")
	if format == "" {
		format = "png"
	}
	cmd := exec.Command("dot", "-T"+format, "-o", output)
	cmd.Stdin = strings.NewReader(string(dot))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("dot: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
