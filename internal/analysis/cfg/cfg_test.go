package cfg

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

const diamond = `
procedure P(x: int) returns (r: int)
{
  entry:
    goto left, right;
  left:
    r := x;
    goto join;
  right:
    r := 0 - x;
    goto join;
  join:
    return;
}
`

func parseProc(t *testing.T, src string) *bpl.Procedure {
	t.Helper()
	prog, err := bpl.Parse("src.bpl", src)
	if err != nil {
		t.Fatal(err)
	}
	impls := prog.Implementations()
	if len(impls) != 1 {
		t.Fatalf("expected one implementation, got %d", len(impls))
	}
	return impls[0]
}

func TestFromProcedure(t *testing.T) {
	g := FromProcedure(parseProc(t, diamond))

	if g.Entry != "entry" {
		t.Errorf("Expected entry block %q, got %q", "entry", g.Entry)
	}
	if len(g.Blocks()) != 4 {
		t.Errorf("Expected 4 blocks, got %d", len(g.Blocks()))
	}

	tests := []struct {
		block string
		succs []string
		preds []string
	}{
		{"entry", []string{"left", "right"}, nil},
		{"left", []string{"join"}, []string{"entry"}},
		{"right", []string{"join"}, []string{"entry"}},
		{"join", []string{Exit}, []string{"left", "right"}},
	}
	for _, tt := range tests {
		t.Run(tt.block, func(t *testing.T) {
			if got := g.Succs(tt.block); strings.Join(got, ",") != strings.Join(tt.succs, ",") {
				t.Errorf("Succs(%s) = %v, want %v", tt.block, got, tt.succs)
			}
			if got := g.Preds(tt.block); strings.Join(got, ",") != strings.Join(tt.preds, ",") {
				t.Errorf("Preds(%s) = %v, want %v", tt.block, got, tt.preds)
			}
		})
	}
}

func TestTopoOrder(t *testing.T) {
	g := FromProcedure(parseProc(t, diamond))

	order, err := g.TopoOrder()
	if err != nil {
		t.Fatal(err)
	}
	index := make(map[string]int)
	for i, l := range order {
		index[l] = i
	}
	for _, b := range order {
		for _, s := range g.Succs(b) {
			if s == Exit {
				continue
			}
			if index[b] >= index[s] {
				t.Errorf("block %s must come before %s in %v", b, s, order)
			}
		}
	}
}

func TestTopoOrderCycle(t *testing.T) {
	src := `
procedure Loop()
{
  a:
    goto b;
  b:
    goto a;
}
`
	_, err := FromProcedure(parseProc(t, src)).TopoOrder()
	if !errors.Is(err, ErrCycle) {
		t.Errorf("Expected ErrCycle, got %v", err)
	}
}

func TestReachable(t *testing.T) {
	src := `
procedure P()
{
  a:
    return;
  dead:
    return;
}
`
	reach := FromProcedure(parseProc(t, src)).Reachable()
	if !reach["a"] || reach["dead"] {
		t.Errorf("unexpected reachability: %v", reach)
	}
}

func TestPrintDot(t *testing.T) {
	g := FromProcedure(parseProc(t, diamond))

	var buf bytes.Buffer
	g.PrintDot(&buf)

	expected := `
digraph mgraph {
	mode="heir";
	splines="ortho";

	"ENTRY" -> "entry (0 cmds)"
	"entry (0 cmds)" -> "left (1 cmds)"
	"entry (0 cmds)" -> "right (1 cmds)"
	"left (1 cmds)" -> "join (0 cmds)"
	"right (1 cmds)" -> "join (0 cmds)"
	"join (0 cmds)" -> "EXIT"
}
`
	if normalizeDotOutput(buf.String()) != normalizeDotOutput(expected) {
		t.Errorf("Expected DOT output:\n%s\nGot:\n%s", expected, buf.String())
	}
}

func normalizeDotOutput(dot string) string {
	lines := strings.Split(dot, "\n")
	var normalized []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return strings.Join(normalized, "\n")
}
