// Package catalog reads and writes category catalog files in YAML.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// File is the root of a catalog file.
type File struct {
	Categories []Entry `yaml:"categories"`
}

// Entry is one category in a catalog file. Active defaults to true.
type Entry struct {
	Key           string `yaml:"key"`
	Name          string `yaml:"name"`
	Description   string `yaml:"description,omitempty"`
	PromptContext string `yaml:"prompt_context,omitempty"`
	SearchQuery   string `yaml:"search_query,omitempty"`
	DisplayOrder  int    `yaml:"display_order,omitempty"`
	Active        *bool  `yaml:"active,omitempty"`
}

// Load reads a catalog file.
func Load(path string) ([]domain.Category, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cats, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cats, nil
}

// Decode parses a catalog. Unknown fields, a missing key or name, and an
// empty catalog are rejected.
func Decode(r io.Reader) ([]domain.Category, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty catalog", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("%w: catalog has no categories", domain.ErrInvalidInput)
	}

	cats := make([]domain.Category, 0, len(file.Categories))
	for i, e := range file.Categories {
		c := e.category()
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("category %d: key and name are required: %w", i+1, err)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

// Encode writes categories in catalog form.
func Encode(w io.Writer, cats []domain.Category) error {
	file := File{Categories: make([]Entry, 0, len(cats))}
	for _, c := range cats {
		active := c.Active
		file.Categories = append(file.Categories, Entry{
			Key:           c.Key,
			Name:          c.Name,
			Description:   c.Description,
			PromptContext: c.PromptContext,
			SearchQuery:   c.SearchQuery,
			DisplayOrder:  c.DisplayOrder,
			Active:        &active,
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (e Entry) category() domain.Category {
	active := true
	if e.Active != nil {
		active = *e.Active
	}
	return domain.Category{
		Key:           strings.TrimSpace(e.Key),
		Name:          strings.TrimSpace(e.Name),
		Description:   strings.TrimSpace(e.Description),
		PromptContext: strings.TrimSpace(e.PromptContext),
		SearchQuery:   strings.TrimSpace(e.SearchQuery),
		DisplayOrder:  e.DisplayOrder,
		Active:        active,
	}
}
