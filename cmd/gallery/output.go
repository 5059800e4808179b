// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ehtisham-afzal/21st/internal/preview/sandbox"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

// write encodes value to out in the requested format. YAML keys follow the
// json tags of value.
func write(out io.Writer, format string, value any) error {
	if format == formatYAML {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}

		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(generic); err != nil {
			return err
		}
		return encoder.Close()
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// writeFiles materialises a bundle's virtual files under dir.
func writeFiles(dir string, files sandbox.Files) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	for _, virtual := range files.Paths() {
		target := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(virtual, "/")))
		if !strings.HasPrefix(target, root+string(filepath.Separator)) {
			return fmt.Errorf("bundle path %q escapes %s", virtual, dir)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, []byte(files[virtual]), 0o644); err != nil {
			return err
		}
	}
	return nil
}
