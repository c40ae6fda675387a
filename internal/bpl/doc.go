// Package bpl implements the intermediate language the tracelets are
// written in: a Boogie-style subset with typed globals, constants, pure
// functions and procedures whose bodies are labeled basic blocks.
//
// The package provides:
//   - Lex / Parse / ParseFile: text to AST
//   - Resolve: name resolution and arity checks
//   - TypeOf: expression typing against a Scope
//   - InferModifies: modifies-set analysis over the call graph
//   - Fprint / WriteFile: AST to text, one command per line
//   - Renamer: namespacing of identifiers as a pure tree rebuild
//
// Supported commands are assignments (including map updates), havoc,
// assert, assume and procedure calls; blocks end in goto or return.
// Quantifiers, old() and bitvector extraction are out of scope.
package bpl
