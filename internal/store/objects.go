package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// --- File operations ---

// UpsertFile inserts f or updates the row with the same path, and sets
// f.ID.
func (s *Store) UpsertFile(f *File) (int64, error) {
	var runID *string
	if f.RunID != "" {
		runID = &f.RunID
	}
	err := s.db.QueryRow(`
		INSERT INTO files (path, hash, encoding, line_count, last_indexed, run_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			hash = excluded.hash,
			encoding = excluded.encoding,
			line_count = excluded.line_count,
			last_indexed = excluded.last_indexed,
			run_id = excluded.run_id
		RETURNING id`,
		f.Path, f.Hash, f.Encoding, f.LineCount, f.LastIndexed, runID,
	).Scan(&f.ID)
	if err != nil {
		return 0, fmt.Errorf("upsert file: %w", err)
	}
	return f.ID, nil
}

const fileColumns = "id, path, hash, encoding, line_count, last_indexed, run_id"

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var hash, encoding, runID sql.NullString
	var indexed sql.NullTime
	if err := scanner.Scan(&f.ID, &f.Path, &hash, &encoding, &f.LineCount, &indexed, &runID); err != nil {
		return nil, err
	}
	f.Hash, f.Encoding, f.RunID = hash.String, encoding.String, runID.String
	f.LastIndexed = indexed.Time
	return f, nil
}

// FileByPath returns the file with the given path, or nil.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileColumns+" FROM files WHERE path = ?", path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileColumns + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Object operations ---

const objectColumns = `o.id, o.guid, o.file_id, COALESCE(p.guid, ''), o.name, o.type, o.qualified_name,
	o.start_line, o.start_col, o.end_line, o.end_col,
	COALESCE(o.checksum, ''), o.code_lines, o.header_comment_lines, o.body_comment_lines,
	COALESCE(o.header_comments, ''), COALESCE(o.body_comments, ''), o.properties`

const objectFrom = " FROM objects o LEFT JOIN objects p ON p.id = o.parent_id"

func scanObject(scanner interface{ Scan(...any) error }) (*Object, error) {
	o := &Object{}
	var fileID sql.NullInt64
	var props string
	err := scanner.Scan(&o.ID, &o.GUID, &fileID, &o.ParentGUID, &o.Name, &o.Type, &o.QualifiedName,
		&o.StartLine, &o.StartCol, &o.EndLine, &o.EndCol,
		&o.Checksum, &o.CodeLines, &o.HeaderCommentLines, &o.BodyCommentLines,
		&o.HeaderComments, &o.BodyComments, &props)
	if err != nil {
		return nil, err
	}
	if fileID.Valid {
		o.FileID = &fileID.Int64
	}
	o.Properties = unmarshalProperties(props)
	return o, nil
}

func (s *Store) queryObjects(where string, args ...any) ([]*Object, error) {
	rows, err := s.db.Query("SELECT "+objectColumns+objectFrom+" "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Object
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ObjectByGUID returns the object with the given GUID, or nil.
func (s *Store) ObjectByGUID(guid string) (*Object, error) {
	o, err := scanObject(s.db.QueryRow("SELECT "+objectColumns+objectFrom+" WHERE o.guid = ?", guid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("object by guid: %w", err)
	}
	return o, nil
}

// ObjectsByType returns the objects carrying a metamodel tag, or every
// object when typ is empty.
func (s *Store) ObjectsByType(typ string) ([]*Object, error) {
	var (
		objs []*Object
		err  error
	)
	if typ == "" {
		objs, err = s.queryObjects("ORDER BY o.guid")
	} else {
		objs, err = s.queryObjects("WHERE o.type = ? ORDER BY o.guid", typ)
	}
	if err != nil {
		return nil, fmt.Errorf("objects by type: %w", err)
	}
	return objs, nil
}

// ObjectsByName returns the objects with the given name, ignoring case.
func (s *Store) ObjectsByName(name string) ([]*Object, error) {
	objs, err := s.queryObjects("WHERE o.name = ? COLLATE NOCASE ORDER BY o.guid", name)
	if err != nil {
		return nil, fmt.Errorf("objects by name: %w", err)
	}
	return objs, nil
}

// ObjectsByFile returns the objects owned by a file in creation order.
func (s *Store) ObjectsByFile(fileID int64) ([]*Object, error) {
	objs, err := s.queryObjects("WHERE o.file_id = ? ORDER BY o.id", fileID)
	if err != nil {
		return nil, fmt.Errorf("objects by file: %w", err)
	}
	return objs, nil
}

// Children returns the direct children of an object in creation order.
func (s *Store) Children(guid string) ([]*Object, error) {
	objs, err := s.queryObjects("WHERE p.guid = ? ORDER BY o.id", guid)
	if err != nil {
		return nil, fmt.Errorf("children: %w", err)
	}
	return objs, nil
}
