// Package symbolic turns an acyclic procedure body into validity
// obligations by path-wise symbolic execution, and decides them with a
// Solver. The Z3 solver is only compiled with the z3 build tag.
package symbolic
