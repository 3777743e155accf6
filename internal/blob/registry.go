package blob

// Registry maps service names to configured engines. It is built once at
// startup and passed into the delivery handler; read-only afterwards.
type Registry struct {
	engines map[string]*Engine
}

func NewRegistry(engines ...*Engine) *Registry {
	r := &Registry{engines: make(map[string]*Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.Name()] = e
	}
	return r
}

func (r *Registry) Register(e *Engine) { r.engines[e.Name()] = e }

func (r *Registry) Lookup(name string) (*Engine, bool) {
	e, ok := r.engines[name]
	return e, ok
}
