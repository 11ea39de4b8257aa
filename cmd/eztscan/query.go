package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jward/eztscan"
)

func (a *app) queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the indexed graph",
		Long:  "Run queries against an indexed set of modules. Objects are addressed by GUID; line numbers are 1-based.",
	}

	objects := &cobra.Command{
		Use:   "objects [type]",
		Short: "List objects, optionally of one type",
		Long:  "List objects ordered by GUID. Types: " + fmt.Sprint(eztscan.Types()),
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runObjects,
	}
	objects.Flags().String("name", "", "only objects with this name (case-insensitive)")

	cmd.AddCommand(
		objects,
		&cobra.Command{
			Use:   "callers <guid>",
			Short: "Objects that call the given object",
			Args:  cobra.ExactArgs(1),
			RunE:  a.runLinks("callers", (*eztscan.QueryBuilder).Callers),
		},
		&cobra.Command{
			Use:   "callees <guid>",
			Short: "Objects called by the given object",
			Args:  cobra.ExactArgs(1),
			RunE:  a.runLinks("callees", (*eztscan.QueryBuilder).Callees),
		},
		&cobra.Command{
			Use:   "accesses <guid>",
			Short: "Files and reports read or written by the given object",
			Args:  cobra.ExactArgs(1),
			RunE:  a.runLinks("accesses", (*eztscan.QueryBuilder).Accesses),
		},
		&cobra.Command{
			Use:   "unresolved",
			Short: "Called programs that no indexed module provides",
			Args:  cobra.NoArgs,
			RunE:  a.runUnresolved,
		},
		&cobra.Command{
			Use:   "summary",
			Short: "Counts of files, objects and edges",
			Args:  cobra.NoArgs,
			RunE:  a.runSummary,
		},
	)
	return cmd
}

// --- Helpers ---

// openEngine opens the database named by --db, which must already exist.
func (a *app) openEngine() (*eztscan.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(a.cfg.DB, findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'eztscan index' first)", dbPath)
	}
	return eztscan.New(dbPath, eztscan.WithLogger(a.logger))
}

// withQuery runs fn against an open QueryBuilder and prints its result.
func (a *app) withQuery(command string, fn func(q *eztscan.QueryBuilder) (any, error)) error {
	engine, err := a.openEngine()
	if err != nil {
		return a.outputError(command, err)
	}
	defer engine.Close()

	results, err := fn(engine.Query())
	if err != nil {
		return a.outputError(command, err)
	}
	return a.outputResult(CLIResult{Command: command, Results: results})
}

// outputResult writes a CLIResult to stdout in the selected format.
func (a *app) outputResult(result CLIResult) error {
	switch a.cfg.Format {
	case "text":
		return outputResultText(a.stdout, result)
	case "yaml":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. Structured formats put the error in the
// envelope on stdout; text mode writes it to stderr.
func (a *app) outputError(command string, err error) error {
	a.errorHandled = true
	if a.cfg.Format == "text" {
		fmt.Fprintf(a.stderr, "Error: %s\n", err)
		return err
	}
	_ = a.outputResult(CLIResult{Command: command, Error: err.Error()})
	return err
}

// fileNames maps file IDs to paths for display.
func fileNames(q *eztscan.QueryBuilder) (map[int64]string, error) {
	files, err := q.Files()
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(files))
	for _, f := range files {
		names[f.ID] = f.Path
	}
	return names, nil
}

func objectToCLI(o *eztscan.Object, files map[int64]string) CLIObject {
	c := CLIObject{
		GUID:       o.GUID,
		Name:       o.Name,
		Type:       o.Type,
		Parent:     o.ParentGUID,
		StartLine:  o.StartLine,
		EndLine:    o.EndLine,
		CodeLines:  o.CodeLines,
		Properties: o.Properties,
	}
	if o.FileID != nil {
		c.File = files[*o.FileID]
	}
	return c
}

func linksToCLI(links []eztscan.Link) []CLILink {
	out := make([]CLILink, 0, len(links))
	for _, l := range links {
		c := CLILink{Kind: string(l.Edge.Kind), Line: l.Edge.StartLine, Col: l.Edge.StartCol}
		if l.Object != nil {
			c.GUID, c.Name, c.Type = l.Object.GUID, l.Object.Name, l.Object.Type
		}
		out = append(out, c)
	}
	return out
}

// --- Commands ---

func (a *app) runObjects(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	return a.withQuery("objects", func(q *eztscan.QueryBuilder) (any, error) {
		var (
			objs []*eztscan.Object
			err  error
		)
		if name != "" {
			objs, err = q.ObjectsByName(name)
		} else {
			typ := ""
			if len(args) > 0 {
				typ = args[0]
			}
			objs, err = q.Objects(typ)
		}
		if err != nil {
			return nil, err
		}
		if name != "" && len(args) > 0 {
			kept := objs[:0]
			for _, o := range objs {
				if o.Type == args[0] {
					kept = append(kept, o)
				}
			}
			objs = kept
		}
		files, err := fileNames(q)
		if err != nil {
			return nil, err
		}
		out := make([]CLIObject, 0, len(objs))
		for _, o := range objs {
			out = append(out, objectToCLI(o, files))
		}
		return out, nil
	})
}

func (a *app) runLinks(command string, query func(*eztscan.QueryBuilder, string) ([]eztscan.Link, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return a.withQuery(command, func(q *eztscan.QueryBuilder) (any, error) {
			obj, err := q.ObjectByGUID(args[0])
			if err != nil {
				return nil, err
			}
			if obj == nil {
				return nil, fmt.Errorf("no object with GUID %q", args[0])
			}
			links, err := query(q, args[0])
			if err != nil {
				return nil, err
			}
			return linksToCLI(links), nil
		})
	}
}

func (a *app) runUnresolved(cmd *cobra.Command, args []string) error {
	return a.withQuery("unresolved", func(q *eztscan.QueryBuilder) (any, error) {
		phs, err := q.Placeholders()
		if err != nil {
			return nil, err
		}
		out := make([]CLIPlaceholder, 0, len(phs))
		for _, p := range phs {
			program := p.Object.Properties[eztscan.PropProgramName]
			if program == "" {
				program = p.Object.Name
			}
			out = append(out, CLIPlaceholder{
				Program: program,
				GUID:    p.Object.GUID,
				Callers: linksToCLI(p.Calls),
			})
		}
		return out, nil
	})
}

func (a *app) runSummary(cmd *cobra.Command, args []string) error {
	return a.withQuery("summary", func(q *eztscan.QueryBuilder) (any, error) {
		s, err := q.Summary()
		if err != nil {
			return nil, err
		}
		out := CLISummary{Files: s.Files, Objects: s.Objects, Edges: make(map[string]int, len(s.Edges))}
		for k, n := range s.Edges {
			out.Edges[string(k)] = n
		}
		if r := s.LastRun; r != nil {
			out.LastRun = &CLIRun{
				ID:         r.ID,
				StartedAt:  r.StartedAt,
				FinishedAt: r.FinishedAt,
				Files:      r.Files,
				Objects:    r.Objects,
				Edges:      r.Edges,
				Failures:   r.Failures,
			}
		}
		return out, nil
	})
}
