package content

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/starford/synamic/internal/model"
	"github.com/starford/synamic/internal/storage"
	"github.com/starford/synamic/internal/types"
)

// ModelExt is the file extension of model definitions.
const ModelExt = ".model"

var modelNameRe = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ModelSet loads models by name and caches them bound to a registry. A
// user model <name>.model is laid over the system default; without one the
// system default is used alone.
type ModelSet struct {
	store storage.Provider
	reg   *types.Registry

	mu    sync.Mutex
	cache map[string]*model.Model
}

// NewModelSet creates a model set reading definitions from store. store may
// be nil, in which case every name resolves to the system default.
func NewModelSet(store storage.Provider, reg *types.Registry) *ModelSet {
	return &ModelSet{store: store, reg: reg, cache: make(map[string]*model.Model)}
}

// Get returns the bound model for name.
func (s *ModelSet) Get(name string) (*model.Model, error) {
	if !modelNameRe.MatchString(name) {
		return nil, fmt.Errorf("content: invalid model name %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.cache[name]; ok {
		return m, nil
	}

	user := model.Empty(name)
	if s.store != nil {
		data, err := s.store.Read(name + ModelExt)
		switch {
		case err == nil:
			user, err = model.Parse(name, string(data))
			if err != nil {
				return nil, err
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("content: load model %s: %w", name, err)
		}
	}

	m := model.SystemDefault().New(user)
	if err := m.Bind(s.reg); err != nil {
		return nil, err
	}
	s.cache[name] = m
	return m, nil
}

// Reset drops every cached model, for example after a model file changed.
func (s *ModelSet) Reset() {
	s.mu.Lock()
	s.cache = make(map[string]*model.Model)
	s.mu.Unlock()
}
