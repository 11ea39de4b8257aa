package store

import (
	"database/sql"
	"fmt"
)

const edgeSelect = `SELECT e.id, e.file_id, e.kind, s.guid, t.guid,
	e.start_line, e.start_col, e.end_line, e.end_col
	FROM edges e
	JOIN objects s ON s.id = e.source_id
	JOIN objects t ON t.id = e.target_id`

func (s *Store) queryEdges(where string, args ...any) ([]*Edge, error) {
	rows, err := s.db.Query(edgeSelect+" "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Edge
	for rows.Next() {
		e := &Edge{}
		var fileID sql.NullInt64
		var kind, src, dst string
		if err := rows.Scan(&e.ID, &fileID, &kind, &src, &dst,
			&e.StartLine, &e.StartCol, &e.EndLine, &e.EndCol); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		if fileID.Valid {
			e.FileID = &fileID.Int64
		}
		e.Kind, e.Source, e.Target = EdgeKind(kind), Handle(src), Handle(dst)
		out = append(out, e)
	}
	return out, rows.Err()
}

func kindFilter(kinds []EdgeKind) (string, []any) {
	if len(kinds) == 0 {
		return "", nil
	}
	return " AND e.kind IN (" + placeholderList(len(kinds)) + ")", kindsToArgs(kinds)
}

// EdgesFrom returns the edges leaving an object, optionally restricted to
// some kinds, in creation order.
func (s *Store) EdgesFrom(guid string, kinds ...EdgeKind) ([]*Edge, error) {
	filter, args := kindFilter(kinds)
	edges, err := s.queryEdges("WHERE s.guid = ?"+filter+" ORDER BY e.id", append([]any{guid}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("edges from: %w", err)
	}
	return edges, nil
}

// EdgesTo returns the edges arriving at an object.
func (s *Store) EdgesTo(guid string, kinds ...EdgeKind) ([]*Edge, error) {
	filter, args := kindFilter(kinds)
	edges, err := s.queryEdges("WHERE t.guid = ?"+filter+" ORDER BY e.id", append([]any{guid}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("edges to: %w", err)
	}
	return edges, nil
}

// EdgesByFile returns the edges emitted while indexing a file.
func (s *Store) EdgesByFile(fileID int64) ([]*Edge, error) {
	edges, err := s.queryEdges("WHERE e.file_id = ? ORDER BY e.id", fileID)
	if err != nil {
		return nil, fmt.Errorf("edges by file: %w", err)
	}
	return edges, nil
}

// Counts returns the number of objects per type and edges per kind.
func (s *Store) Counts() (objects map[string]int, edges map[EdgeKind]int, err error) {
	objects = make(map[string]int)
	edges = make(map[EdgeKind]int)

	rows, err := s.db.Query("SELECT type, COUNT(*) FROM objects GROUP BY type")
	if err != nil {
		return nil, nil, fmt.Errorf("count objects: %w", err)
	}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("count objects: %w", err)
		}
		objects[typ] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("count objects: %w", err)
	}

	rows, err = s.db.Query("SELECT kind, COUNT(*) FROM edges GROUP BY kind")
	if err != nil {
		return nil, nil, fmt.Errorf("count edges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, nil, fmt.Errorf("count edges: %w", err)
		}
		edges[EdgeKind(kind)] = n
	}
	return objects, edges, rows.Err()
}
