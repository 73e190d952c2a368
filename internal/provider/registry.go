package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/socialgate/internal/observability/logger"
)

// registry es la tabla global nombre → factory. Se puebla en init() de cada
// paquete de plataforma (importados en blanco desde main).
var registry = struct {
	mu        sync.RWMutex
	factories map[string]Factory
}{factories: map[string]Factory{}}

// Register registra una factory bajo name. Un nombre duplicado es un bug de
// programación y panickea en init, no en runtime de requests.
func Register(name string, f Factory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, dup := registry.factories[name]; dup {
		panic(fmt.Sprintf("provider: Register called twice for %q", name))
	}
	registry.factories[name] = f
}

// Names retorna los nombres registrados, ordenados.
func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make([]string, 0, len(registry.factories))
	for n := range registry.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// unregisterForTests limpia una entrada. Solo para tests del paquete.
func unregisterForTests(name string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.factories, name)
}

// Mount instancia cada provider registrado y monta sus rutas bajo /<name>.
// La falla (error o panic) de UNA factory se loguea y se saltea: nunca aborta
// el arranque de las demás plataformas ni del management.
// Retorna los nombres efectivamente montados.
func Mount(r chi.Router, deps Deps) []string {
	log := logger.Named("registry")
	var mounted []string

	for _, name := range Names() {
		registry.mu.RLock()
		factory := registry.factories[name]
		registry.mu.RUnlock()

		p, err := instantiate(factory, deps)
		if err != nil {
			log.Error("platform failed to load, skipping",
				logger.Provider(name),
				logger.Err(err),
			)
			continue
		}

		h := NewHandler(p, deps)
		r.Route("/"+name, func(rt chi.Router) {
			rt.Get("/login", h.Login)
			rt.Get("/callback", h.Callback)
			rt.Post("/post", h.Post)
		})
		log.Info("platform mounted", logger.Provider(name), logger.Path("/"+name))
		mounted = append(mounted, name)
	}
	return mounted
}

// instantiate aísla panics de la factory convirtiéndolos en error.
func instantiate(f Factory, deps Deps) (p Provider, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("factory panicked: %v", rec)
		}
	}()
	return f(deps)
}
