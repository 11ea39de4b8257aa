package eztscan

import "github.com/jward/eztscan/internal/store"

// Public type aliases for internal store types used in the QueryBuilder API.
// External consumers use these names; no conversion is needed.

type Store = store.Store
type Object = store.Object
type Edge = store.Edge
type EdgeKind = store.EdgeKind
type File = store.File
type Run = store.Run
type Handle = store.Handle

// Edge kinds.
const (
	EdgeCall  = store.EdgeCall
	EdgeRead  = store.EdgeRead
	EdgeWrite = store.EdgeWrite
)

// Object types.
const (
	TypeProgram        = "Eztprogram"
	TypeProcedure      = "Easyproc"
	TypeFile           = "Easyfile"
	TypeReport         = "Easyreport"
	TypeSQLQuery       = "EasySQLQuery"
	TypeUnknownProgram = "EasyCalltoProgram"
)

// Object property keys.
const (
	PropSQLQuery    = store.PropSQLQuery
	PropProgramName = store.PropProgramName
)
