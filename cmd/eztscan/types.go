package main

import "time"

// CLIResult is the top-level envelope for all query commands.
type CLIResult struct {
	Command string `json:"command" yaml:"command"`
	Results any    `json:"results" yaml:"results"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIObject is a serializable graph object.
type CLIObject struct {
	GUID       string            `json:"guid" yaml:"guid"`
	Name       string            `json:"name" yaml:"name"`
	Type       string            `json:"type" yaml:"type"`
	Parent     string            `json:"parent,omitempty" yaml:"parent,omitempty"`
	File       string            `json:"file,omitempty" yaml:"file,omitempty"`
	StartLine  int               `json:"start_line" yaml:"start_line"`
	EndLine    int               `json:"end_line" yaml:"end_line"`
	CodeLines  int               `json:"code_lines" yaml:"code_lines"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// CLILink is an edge seen from one of its ends.
type CLILink struct {
	Kind string `json:"kind" yaml:"kind"`
	GUID string `json:"guid" yaml:"guid"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	Line int    `json:"line" yaml:"line"`
	Col  int    `json:"col" yaml:"col"`
}

// CLIPlaceholder is an unresolved called program.
type CLIPlaceholder struct {
	Program string    `json:"program" yaml:"program"`
	GUID    string    `json:"guid" yaml:"guid"`
	Callers []CLILink `json:"callers" yaml:"callers"`
}

// CLIRun describes one indexing run.
type CLIRun struct {
	ID         string     `json:"id" yaml:"id"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Files      int        `json:"files" yaml:"files"`
	Objects    int        `json:"objects" yaml:"objects"`
	Edges      int        `json:"edges" yaml:"edges"`
	Failures   int        `json:"failures" yaml:"failures"`
}

// CLISummary counts the content of the database.
type CLISummary struct {
	Files   int            `json:"files" yaml:"files"`
	Objects map[string]int `json:"objects" yaml:"objects"`
	Edges   map[string]int `json:"edges" yaml:"edges"`
	LastRun *CLIRun        `json:"last_run,omitempty" yaml:"last_run,omitempty"`
}
