package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk, falling
// back to the built-in defaults it was created with.
//
// The store initialises lazily: the directory and default files are only
// written on the first Load, never in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	defaults  map[string]string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.plataformas/prompts/.
func NewPromptStore(promptDir string, defaults map[string]string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		defaults:  maps.Clone(defaults),
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name. A file that cannot
// be read falls back to the built-in default; unknown names without a file
// are an error.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := s.defaults[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil || prompt == "" {
		if def, ok := s.defaults[name]; ok {
			return def, nil
		}
		if err == nil {
			err = errors.New("empty prompt file")
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// Reset overwrites a prompt file with its built-in default.
func (s *PromptStore) Reset(name string) error {
	def, ok := s.defaults[name]
	if !ok {
		return fmt.Errorf("no default for prompt %q", name)
	}
	if err := os.MkdirAll(s.promptDir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	if err := os.WriteFile(s.path(name), []byte(def), 0o600); err != nil {
		return fmt.Errorf("write prompt %q: %w", name, err)
	}
	s.Reload()
	return nil
}

func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0o700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range s.defaults {
		path := s.path(name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.promptDir, name+".txt")
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	content := `# plataformas prompts

Prompts used when summarising party positions.

## Files

- ` + "`position_system.txt`" + ` - System prompt sent with every synthesis call
- ` + "`position_synthesis.txt`" + ` - Per-category synthesis template

## Template fields

` + "`position_synthesis.txt`" + ` is a Go text/template. It receives:

- ` + "`{{.Party}}`" + ` - party name
- ` + "`{{.Category}}`" + ` - category name
- ` + "`{{.PromptContext}}`" + ` - the category's analysis focus, may be empty
- ` + "`{{.Context}}`" + ` - retrieved excerpts labelled [Página N, relevancia: 0.NN]

The response must stay a JSON object with "summary" and "key_proposals", and
every claim must cite [Página X]. Delete a file to restore its default.
`
	return os.WriteFile(path, []byte(content), 0o600)
}
