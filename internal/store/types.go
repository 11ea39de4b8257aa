package store

import "time"

// Handle identifies an object at the sink. It is the object's final GUID.
type Handle string

// EdgeKind is the type of a link between two objects.
type EdgeKind string

const (
	EdgeCall  EdgeKind = "call"
	EdgeRead  EdgeKind = "read-access"
	EdgeWrite EdgeKind = "write-access"
)

// Object property keys.
const (
	PropSQLQuery    = "sqlQuery"
	PropProgramName = "programName"
)

// File is an indexed source file.
type File struct {
	ID          int64
	Path        string
	Hash        string
	Encoding    string
	LineCount   int
	LastIndexed time.Time
	RunID       string
}

// Metrics are the measures recorded on every object.
type Metrics struct {
	Checksum           string
	CodeLines          int
	HeaderCommentLines int
	BodyCommentLines   int
	HeaderComments     string
	BodyComments       string
}

// Object is one node of the graph. GUID holds the requested GUID; the sink
// returns the final, disambiguated one as a Handle.
type Object struct {
	ID            int64
	FileID        *int64
	GUID          string
	ParentGUID    string // empty for module objects
	Name          string
	Type          string // metamodel tag, e.g. Eztprogram
	QualifiedName string
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
	Metrics
	Properties map[string]string
}

// Edge is a typed link between two objects.
type Edge struct {
	ID        int64
	FileID    *int64
	Kind      EdgeKind
	Source    Handle
	Target    Handle
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Run records one indexing run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Files      int
	Objects    int
	Edges      int
	Failures   int
}
