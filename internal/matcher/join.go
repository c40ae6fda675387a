package matcher

import (
	"fmt"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

// Joined is the query program with the top-level declarations of the
// target merged in, plus the renamed target implementation that still has
// to be spliced into the query body.
type Joined struct {
	Program *bpl.Program
	Query   *bpl.Procedure
	Target  *bpl.Procedure
	Prefix  string
}

// Namespace returns the prefix applied to target identifiers.
func Namespace(prefix string) string {
	return prefix + "."
}

func singleImplementation(prog *bpl.Program) (*bpl.Procedure, error) {
	impls := prog.Implementations()
	if len(impls) != 1 {
		return nil, &InputError{
			Path: prog.Filename,
			Err:  fmt.Errorf("one implementation per program, please (found %d)", len(impls)),
		}
	}
	return impls[0], nil
}

// Join merges target into query, which is modified in place. Functions and
// types missing from the query are added unchanged; constants, globals and
// body-less procedures of the target are added under the namespace; the
// target implementation is renamed into the namespace.
func Join(query, target *bpl.Program, prefix string) (*Joined, error) {
	q, err := singleImplementation(query)
	if err != nil {
		return nil, err
	}
	t, err := singleImplementation(target)
	if err != nil {
		return nil, err
	}

	r := bpl.NewRenamer(Namespace(prefix))
	for _, d := range target.Decls {
		switch d := d.(type) {
		case *bpl.TypeDecl:
			if !query.HasDecl(d.Name) {
				query.Decls = append(query.Decls, d)
			}
		case *bpl.FunctionDecl:
			if !query.HasDecl(d.Name) {
				query.Decls = append(query.Decls, d)
			}
		case *bpl.ConstDecl:
			query.Decls = append(query.Decls, &bpl.ConstDecl{
				Attrs:  d.Attrs,
				Unique: d.Unique,
				Var:    bpl.Variable{Name: r.Name(d.Var.Name), Type: d.Var.Type},
			})
		case *bpl.GlobalDecl:
			query.Decls = append(query.Decls, &bpl.GlobalDecl{
				Attrs: d.Attrs,
				Var:   bpl.Variable{Name: r.Name(d.Var.Name), Type: d.Var.Type},
			})
		case *bpl.Procedure:
			if !d.HasBody {
				query.Decls = append(query.Decls, r.Procedure(d))
			}
		}
	}

	return &Joined{
		Program: query,
		Query:   q,
		Target:  r.Procedure(t),
		Prefix:  prefix,
	}, nil
}
