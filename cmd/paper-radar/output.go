// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"go.yaml.in/yaml/v3"
)

const (
	formatAuto  = "auto"
	formatTable = "table"
	formatText  = "text"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// resolveFormat maps "auto" to human output on a terminal and JSON otherwise.
func resolveFormat(format, human string, w io.Writer) (string, error) {
	switch format {
	case "", formatAuto:
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			return human, nil
		}
		return formatJSON, nil
	case human, formatJSON, formatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("unknown format %q (want %s, %s, %s or %s)", format, formatAuto, human, formatJSON, formatYAML)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
