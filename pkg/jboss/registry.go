package jboss

import (
	"slices"
	"strings"

	"github.com/openfroyo/jbossfacts/pkg/facts"
)

const (
	// InstancesFact lists every instance on the host.
	InstancesFact = "jboss_instances"

	// ApplicationFactSuffix is appended to an application name to form the
	// name of its per-application fact.
	ApplicationFactSuffix = "_instances"

	separator = ","
)

// Registry is the result of one scan. It is never modified after Scan
// returns, so it can be shared freely between goroutines.
type Registry struct {
	instances    []string
	applications map[string][]string
}

func emptyRegistry() *Registry {
	return &Registry{applications: map[string][]string{}}
}

// registryBuilder accumulates entries in encounter order.
type registryBuilder struct {
	instances    []string
	applications map[string][]string
}

func newRegistryBuilder() *registryBuilder {
	return &registryBuilder{applications: make(map[string][]string)}
}

func (b *registryBuilder) add(instance string) {
	app := ApplicationName(instance)
	b.instances = append(b.instances, instance)
	b.applications[app] = append(b.applications[app], instance)
}

// build sorts and de-duplicates every list.
func (b *registryBuilder) build() *Registry {
	r := &Registry{
		instances:    normalize(b.instances),
		applications: make(map[string][]string, len(b.applications)),
	}
	for app, members := range b.applications {
		r.applications[app] = normalize(members)
	}
	return r
}

func normalize(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return slices.Compact(out)
}

// Len returns the number of instances.
func (r *Registry) Len() int {
	return len(r.instances)
}

// IsEmpty reports whether the scan found no instances.
func (r *Registry) IsEmpty() bool {
	return len(r.instances) == 0
}

// Instances returns all instance names in sorted order.
func (r *Registry) Instances() []string {
	return slices.Clone(r.instances)
}

// Applications returns the application names in sorted order.
func (r *Registry) Applications() []string {
	apps := make([]string, 0, len(r.applications))
	for app := range r.applications {
		apps = append(apps, app)
	}
	slices.Sort(apps)
	return apps
}

// ApplicationInstances returns the sorted instances of one application.
func (r *Registry) ApplicationInstances(app string) ([]string, bool) {
	members, ok := r.applications[app]
	if !ok {
		return nil, false
	}
	return slices.Clone(members), true
}

// ApplicationFactName returns the fact name used for an application.
func ApplicationFactName(app string) string {
	return app + ApplicationFactSuffix
}

// FactDefinitions describes the registry as facts. jboss_instances is
// omitted when there are no instances; every application gets its own
// fact, except an application literally named "jboss", whose fact name
// would shadow jboss_instances. Values are computed from the registry when
// requested.
func (r *Registry) FactDefinitions() []facts.Definition {
	if r.IsEmpty() {
		return nil
	}

	defs := make([]facts.Definition, 0, len(r.applications)+1)
	defs = append(defs, facts.Definition{
		Name:  InstancesFact,
		Value: joinValue(r.instances),
	})
	for _, app := range r.Applications() {
		if ApplicationFactName(app) == InstancesFact {
			continue
		}
		defs = append(defs, facts.Definition{
			Name:  ApplicationFactName(app),
			Value: joinValue(r.applications[app]),
		})
	}
	return defs
}

// joinValue defers joining until the fact is requested.
func joinValue(names []string) facts.ValueFunc {
	return func() string {
		return strings.Join(names, separator)
	}
}
