package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"taskboard/internal/board"
	"taskboard/internal/models/task"
)

const shortID = 8

func renderBoard(w io.Writer, view board.View) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range task.Categories {
		column := view.Column(c)
		fmt.Fprintf(tw, "%s (%d)\n", c, len(column))
		for i, t := range column {
			line := fmt.Sprintf("  %d\t%s\t%s", i, abbrev(t.ID), t.Title)
			if t.Description != "" {
				line += "\t" + firstLine(t.Description)
			}
			fmt.Fprintln(tw, line)
		}
	}
	_ = tw.Flush()
}

type columnJSON struct {
	Category string      `json:"category"`
	Tasks    []task.Task `json:"tasks"`
}

func renderJSON(w io.Writer, view board.View) error {
	out := make([]columnJSON, 0, len(task.Categories))
	for _, c := range task.Categories {
		out = append(out, columnJSON{Category: c.String(), Tasks: view.Column(c)})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func abbrev(id string) string {
	if len(id) <= shortID {
		return id
	}
	return id[:shortID]
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "..."
	}
	return s
}
