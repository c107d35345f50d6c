package translation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forPelevin/voxdub/internal/ports"
	"github.com/forPelevin/voxdub/internal/runctl"
)

// Registry holds the translation engines a run can choose from. The first
// registered engine is the default.
type Registry struct {
	byName map[string]ports.Translator
	first  string
}

func NewRegistry(ts ...ports.Translator) *Registry {
	r := &Registry{byName: make(map[string]ports.Translator, len(ts))}
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

// Register adds t, replacing any engine with the same name.
func (r *Registry) Register(t ports.Translator) {
	if t == nil {
		return
	}
	name := strings.ToLower(t.Name())
	if r.first == "" {
		r.first = name
	}
	r.byName[name] = t
}

// Get returns the named engine; an empty name selects the default.
func (r *Registry) Get(name string) (ports.Translator, error) {
	if r == nil || len(r.byName) == 0 {
		return nil, fmt.Errorf("%w: no translators configured", runctl.ErrConfiguration)
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = r.first
	}
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown translator %q (available: %s)", runctl.ErrValidation, name, strings.Join(r.Names(), ", "))
	}
	return t, nil
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Default() string {
	if r == nil {
		return ""
	}
	return r.first
}
