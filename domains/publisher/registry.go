package publisher

import (
	"fmt"
	"sort"

	domainPost "github.com/postpilot-io/postpilot/domains/post"
)

// Registry maps platform types to their publisher implementation. It is
// built once at startup and read-only afterwards, so no locking is needed.
type Registry struct {
	publishers map[domainPost.Platform]Publisher
}

func NewRegistry(publishers ...Publisher) *Registry {
	r := &Registry{publishers: make(map[domainPost.Platform]Publisher, len(publishers))}
	for _, p := range publishers {
		r.publishers[p.Platform()] = p
	}
	return r
}

// Register adds or replaces the publisher for its platform.
func (r *Registry) Register(p Publisher) {
	r.publishers[p.Platform()] = p
}

// Get returns the publisher for a platform.
func (r *Registry) Get(platform domainPost.Platform) (Publisher, error) {
	p, ok := r.publishers[platform]
	if !ok {
		return nil, fmt.Errorf("no publisher registered for platform %q", platform)
	}
	return p, nil
}

// Platforms lists the registered platform types, sorted for stable output.
func (r *Registry) Platforms() []domainPost.Platform {
	out := make([]domainPost.Platform, 0, len(r.publishers))
	for p := range r.publishers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
