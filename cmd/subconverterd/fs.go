package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nodeconv/subconverter/cmn"
)

// readLocalFile scopes a /getlocal path the same way Renderer.include
// scopes a template include: the resolved path must canonicalize to
// somewhere under basePath.
func readLocalFile(path string) ([]byte, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(basePath, full)
	}
	abs, err := filepath.Abs(full)
	if err != nil {
		return nil, err
	}
	base, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, cmn.ErrTemplateScope
	}
	return os.ReadFile(abs)
}

func writeFile(path string, body []byte) error {
	return os.WriteFile(path, body, 0o644)
}
