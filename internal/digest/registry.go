package digest

import "fmt"

// Registry keeps a mapping from summarizer names to their implementations.
type Registry struct {
	summarizers map[string]Summarizer
}

// NewRegistry builds a registry that already knows the heuristic summarizer.
func NewRegistry() *Registry {
	r := &Registry{summarizers: map[string]Summarizer{}}
	r.Register(HeuristicSummarizer{})
	return r
}

// Register adds or replaces a summarizer implementation.
func (r *Registry) Register(s Summarizer) {
	if r.summarizers == nil {
		r.summarizers = map[string]Summarizer{}
	}
	r.summarizers[s.Name()] = s
}

// Resolve returns a summarizer by name; an empty name means heuristic.
func (r *Registry) Resolve(name string) (Summarizer, error) {
	if name == "" {
		name = HeuristicSummarizer{}.Name()
	}
	if s, ok := r.summarizers[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("summarizer %s is not registered", name)
}
