// Package loader finds template sources by name.
package loader

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/funvibe/liquid/internal/utils"
)

var log = commonlog.GetLogger("liquid.loader")

// ErrTemplateNotFound is returned when no loader source matches a name.
var ErrTemplateNotFound = errors.New("template not found")

// Source is a template's text and where it came from.
type Source struct {
	Name     string
	Text     string
	Filename string
	// UpToDate reports whether Text still matches its origin. Nil means the
	// source never goes stale.
	UpToDate func() bool
}

// Stale reports whether the source should be reloaded.
func (s *Source) Stale() bool {
	return s.UpToDate != nil && !s.UpToDate()
}

// Loader returns the source of a named template.
type Loader interface {
	GetSource(name string) (*Source, error)
}

// FileSystemLoader loads templates from a list of directories, first match
// wins. Names without an extension also match the recognized template
// extensions.
type FileSystemLoader struct {
	SearchPath []string
}

func NewFileSystemLoader(searchPath ...string) *FileSystemLoader {
	if len(searchPath) == 0 {
		searchPath = []string{"."}
	}
	return &FileSystemLoader{SearchPath: searchPath}
}

func (l *FileSystemLoader) GetSource(name string) (*Source, error) {
	for _, root := range l.SearchPath {
		for _, candidate := range utils.CandidatePaths(name) {
			path, err := utils.ResolveTemplatePath(root, candidate)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrTemplateNotFound, name, err)
			}
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", name, err)
			}
			log.Debugf("loaded %q from %s", name, path)

			mtime := info.ModTime()
			return &Source{
				Name:     name,
				Text:     string(data),
				Filename: path,
				UpToDate: func() bool {
					info, err := os.Stat(path)
					return err == nil && info.ModTime().Equal(mtime)
				},
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// DictLoader serves templates from memory.
type DictLoader map[string]string

func (l DictLoader) GetSource(name string) (*Source, error) {
	text, ok := l[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return &Source{Name: name, Text: text, Filename: name}, nil
}

// Names lists the templates in the dictionary, sorted.
func (l DictLoader) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
