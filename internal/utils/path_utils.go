package utils

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/funvibe/liquid/internal/config"
)

// ErrOutsideRoot is returned for template names that escape their search
// directory.
var ErrOutsideRoot = errors.New("template path escapes search directory")

// ResolveTemplatePath joins a slash-separated template name onto root and
// rejects names that would leave it.
func ResolveTemplatePath(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return filepath.Join(root, clean), nil
}

// CandidatePaths lists the names tried for a template: the name itself,
// then the name with each recognized extension when it has none.
func CandidatePaths(name string) []string {
	if config.HasTemplateExt(name) {
		return []string{name}
	}
	out := []string{name}
	for _, ext := range config.TemplateFileExtensions {
		out = append(out, name+ext)
	}
	return out
}

// ExtractTemplateName derives a template's stem from a file path.
// It takes the base filename and removes any recognized template extension.
func ExtractTemplateName(path string) string {
	return config.TrimTemplateExt(filepath.Base(path))
}

// TemplateSuffix returns the extension of path without its leading dot.
func TemplateSuffix(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}
