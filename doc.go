// Package eztscan builds a call and access graph of Easytrieve sources.
//
// # Pipeline
//
// Indexing a set of files runs in two passes:
//
//  1. Light pass: every file is read, decoded from its configured charset,
//     classified as program or macro and registered in a library under its
//     base name. Registration order is the input order.
//
//  2. Full pass: each module is parsed into statements, its procedures,
//     files, reports and SQL statements become symbols, and every PERFORM,
//     CALL, GET, PUT and similar reference is resolved, first locally from
//     the innermost scope and then, for CALL, across the library. The
//     resulting objects and typed edges go to SQLite, one batch per module.
//
// A CALL to a program no module provides gets a placeholder object of type
// EasyCalltoProgram. A module that fails to parse is reported and skipped;
// the rest of the set is still indexed.
//
// # Usage
//
//	e, err := eztscan.New(".eztscan.db", eztscan.WithEncoding("IBM037"))
//	if err != nil { ... }
//	defer e.Close()
//
//	rep, err := e.IndexDirectory(ctx, "path/to/sources")
//
//	q := e.Query()
//	callers, err := q.Callers(guid)
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] reads the graph back:
//
//   - [QueryBuilder.Objects], [QueryBuilder.ObjectByGUID] and
//     [QueryBuilder.ObjectsByName] look objects up.
//   - [QueryBuilder.Callers] and [QueryBuilder.Callees] follow call edges.
//   - [QueryBuilder.Accesses] lists the read-access and write-access edges
//     leaving an object.
//   - [QueryBuilder.Placeholders] lists unresolved called programs.
//   - [QueryBuilder.Summary] counts files, objects and edges.
//
// Objects are addressed by GUID: the parent's GUID, the object type and the
// upper-cased name joined with dots, rooted at the module's file path.
package eztscan
