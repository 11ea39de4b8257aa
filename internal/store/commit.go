package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrUnknownObject is returned when an edge or a child refers to a GUID
// that is neither in the batch nor in the database.
var ErrUnknownObject = errors.New("unknown object")

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// CommitBatch writes all buffered objects and edges of a Batch within a
// single transaction. GUIDs are mapped to row IDs as objects are written;
// parents and edge ends outside the batch are looked up in the database.
//
// Objects go first, in creation order, so every parent row exists before
// its children and before any edge that points at it.
func (s *Store) CommitBatch(batch *Batch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	ids := make(map[string]int64)

	batch.mu.Lock()
	defer batch.mu.Unlock()

	for i := range batch.Objects {
		obj := &batch.Objects[i]
		if err := upsertObject(tx, ids, obj); err != nil {
			return fmt.Errorf("commit batch: object %q: %w", obj.GUID, err)
		}
	}
	for i := range batch.Edges {
		e := &batch.Edges[i]
		if err := insertEdge(tx, ids, e); err != nil {
			return fmt.Errorf("commit batch: edge %s %s -> %s: %w", e.Kind, e.Source, e.Target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func lookupID(q queryer, ids map[string]int64, guid string) (int64, error) {
	if id, ok := ids[guid]; ok {
		return id, nil
	}
	var id int64
	err := q.QueryRow("SELECT id FROM objects WHERE guid = ?", guid).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%q: %w", guid, ErrUnknownObject)
	}
	if err != nil {
		return 0, err
	}
	ids[guid] = id
	return id, nil
}

func upsertObject(q queryer, ids map[string]int64, obj *Object) error {
	var parentID *int64
	if obj.ParentGUID != "" {
		id, err := lookupID(q, ids, obj.ParentGUID)
		if err != nil {
			return fmt.Errorf("parent: %w", err)
		}
		parentID = &id
	}
	err := q.QueryRow(`
		INSERT INTO objects (guid, file_id, parent_id, name, type, qualified_name,
			start_line, start_col, end_line, end_col,
			checksum, code_lines, header_comment_lines, body_comment_lines,
			header_comments, body_comments, properties)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guid) DO UPDATE SET
			file_id = excluded.file_id,
			parent_id = excluded.parent_id,
			name = excluded.name,
			type = excluded.type,
			qualified_name = excluded.qualified_name,
			start_line = excluded.start_line,
			start_col = excluded.start_col,
			end_line = excluded.end_line,
			end_col = excluded.end_col,
			checksum = excluded.checksum,
			code_lines = excluded.code_lines,
			header_comment_lines = excluded.header_comment_lines,
			body_comment_lines = excluded.body_comment_lines,
			header_comments = excluded.header_comments,
			body_comments = excluded.body_comments,
			properties = excluded.properties
		RETURNING id`,
		obj.GUID, obj.FileID, parentID, obj.Name, obj.Type, obj.QualifiedName,
		obj.StartLine, obj.StartCol, obj.EndLine, obj.EndCol,
		obj.Checksum, obj.CodeLines, obj.HeaderCommentLines, obj.BodyCommentLines,
		obj.HeaderComments, obj.BodyComments, marshalProperties(obj.Properties),
	).Scan(&obj.ID)
	if err != nil {
		return err
	}
	ids[obj.GUID] = obj.ID
	return nil
}

func insertEdge(q queryer, ids map[string]int64, e *Edge) error {
	src, err := lookupID(q, ids, string(e.Source))
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	dst, err := lookupID(q, ids, string(e.Target))
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	res, err := q.Exec(`
		INSERT INTO edges (file_id, kind, source_id, target_id, start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FileID, string(e.Kind), src, dst, e.StartLine, e.StartCol, e.EndLine, e.EndCol,
	)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}
