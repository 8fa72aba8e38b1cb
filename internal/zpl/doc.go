// Package zpl renders weight records into ZPL label documents.
//
// Rendering is pure and deterministic: the same record and template name
// always produce a byte-identical document. The engine holds only label
// geometry and selection thresholds fixed at construction; it performs
// no I/O.
package zpl
