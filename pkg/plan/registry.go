package plan

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"sync"

	perrors "provisioner/pkg/errors"
)

// DefaultPlan is run when no plan is selected.
const DefaultPlan = "render-build"

//go:embed plans/*.yaml
var embedded embed.FS

type Registry struct {
	plans map[string]*Plan
	mutex sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		plans: make(map[string]*Plan),
	}
}

func (r *Registry) Register(p Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.plans[p.Name]; exists {
		return perrors.NewPlanError("name", p.Name, "plan already registered")
	}
	planCopy := p.clone()
	r.plans[p.Name] = &planCopy
	return nil
}

func (r *Registry) Get(name string) (Plan, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	p, exists := r.plans[name]
	if !exists {
		return Plan{}, fmt.Errorf("%w: %s", perrors.ErrPlanNotFound, name)
	}
	return p.clone(), nil
}

// Names returns the registered plan names in sorted order.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.plans))
	for name := range r.plans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns copies of every plan, sorted by name.
func (r *Registry) All() []Plan {
	names := r.Names()

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]Plan, 0, len(names))
	for _, name := range names {
		result = append(result, r.plans[name].clone())
	}
	return result
}

func (p Plan) clone() Plan {
	c := p
	c.Steps = make([]Step, len(p.Steps))
	for i, s := range p.Steps {
		s.Args = append([]string(nil), s.Args...)
		c.Steps[i] = s
	}
	return c
}

var (
	catalogue     *Registry
	catalogueOnce sync.Once
)

// Catalogue returns the registry of plans compiled into the binary.
func Catalogue() *Registry {
	catalogueOnce.Do(func() {
		reg, err := loadEmbedded()
		if err != nil {
			panic(fmt.Sprintf("embedded plans are invalid: %v", err))
		}
		catalogue = reg
	})
	return catalogue
}

// Lookup returns a compiled-in plan by name.
func Lookup(name string) (Plan, error) {
	return Catalogue().Get(name)
}

// Names lists the compiled-in plans.
func Names() []string {
	return Catalogue().Names()
}

func loadEmbedded() (*Registry, error) {
	entries, err := embedded.ReadDir("plans")
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()
	for _, entry := range entries {
		data, err := embedded.ReadFile(path.Join("plans", entry.Name()))
		if err != nil {
			return nil, err
		}
		p, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if err := reg.Register(p); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
	}
	return reg, nil
}
