package bpl

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const indent = "  "

// Fprint writes prog in source form. Every command is printed on its own
// line, so a line number identifies at most one command.
func Fprint(w io.Writer, prog *Program) error {
	bw := bufio.NewWriter(w)
	for i, d := range prog.Decls {
		if i > 0 {
			bw.WriteString("\n")
		}
		printDecl(bw, d)
	}
	return bw.Flush()
}

// String returns the source form of the program.
func (p *Program) String() string {
	var sb strings.Builder
	_ = Fprint(&sb, p)
	return sb.String()
}

// WriteFile prints prog to path, replacing any existing file.
func WriteFile(path string, prog *Program) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Fprint(f, prog); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func attrs(as []Attribute) string {
	var sb strings.Builder
	for _, a := range as {
		sb.WriteString(a.String())
		sb.WriteString(" ")
	}
	return sb.String()
}

func vars(vs []Variable) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func printDecl(w *bufio.Writer, d Decl) {
	switch d := d.(type) {
	case *TypeDecl:
		w.WriteString("type " + attrs(d.Attrs) + d.Name + ";\n")
	case *ConstDecl:
		w.WriteString("const " + attrs(d.Attrs))
		if d.Unique {
			w.WriteString("unique ")
		}
		w.WriteString(d.Var.String() + ";\n")
	case *GlobalDecl:
		w.WriteString("var " + attrs(d.Attrs) + d.Var.String() + ";\n")
	case *FunctionDecl:
		printFunction(w, d)
	case *Procedure:
		printProcedure(w, d)
	}
}

func printFunction(w *bufio.Writer, fn *FunctionDecl) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		if p.Name == "" {
			params[i] = p.Type.String()
		} else {
			params[i] = p.String()
		}
	}
	result := fn.Result.Type.String()
	if fn.Result.Name != "" {
		result = fn.Result.String()
	}
	w.WriteString("function " + attrs(fn.Attrs) + fn.Name + "(" + strings.Join(params, ", ") + ") returns (" + result + ")")
	if fn.Body == nil {
		w.WriteString(";\n")
		return
	}
	w.WriteString("\n{\n" + indent + fn.Body.String() + "\n}\n")
}

func printProcedure(w *bufio.Writer, proc *Procedure) {
	w.WriteString("procedure " + attrs(proc.Attrs) + proc.Name + "(" + vars(proc.InParams) + ")")
	if len(proc.OutParams) > 0 {
		w.WriteString(" returns (" + vars(proc.OutParams) + ")")
	}
	if !proc.HasBody {
		w.WriteString(";")
	}
	w.WriteString("\n")
	for _, e := range proc.Requires {
		w.WriteString(indent + "requires " + e.String() + ";\n")
	}
	for _, e := range proc.Ensures {
		w.WriteString(indent + "ensures " + e.String() + ";\n")
	}
	if len(proc.Modifies) > 0 {
		w.WriteString(indent + "modifies " + strings.Join(proc.Modifies, ", ") + ";\n")
	}
	if !proc.HasBody {
		return
	}

	w.WriteString("{\n")
	for _, v := range proc.Locals {
		w.WriteString(indent + "var " + v.String() + ";\n")
	}
	for _, b := range proc.Blocks {
		w.WriteString("\n" + indent + b.Label + ":\n")
		for _, c := range b.Cmds {
			w.WriteString(indent + indent + c.String() + "\n")
		}
		if b.Transfer != nil {
			w.WriteString(indent + indent + b.Transfer.String() + "\n")
		}
	}
	w.WriteString("}\n")
}
