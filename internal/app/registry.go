package app

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry manages loaded applications.
type Registry struct {
	sync.RWMutex
	apps     map[string]*App   // name -> app
	byPlugin map[string][]*App // plugin -> apps requesting it
	logger   *zap.Logger
}

// NewRegistry creates a new application registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		apps:     make(map[string]*App),
		byPlugin: make(map[string][]*App),
		logger:   logger.With(zap.String("component", "app-registry")),
	}
}

// Register adds an application to the registry.
func (r *Registry) Register(app *App) error {
	r.Lock()
	defer r.Unlock()

	name := app.Manifest.Name

	if _, exists := r.apps[name]; exists {
		return &AppAlreadyRegisteredError{AppName: name}
	}

	r.apps[name] = app

	for _, plugin := range app.Manifest.Plugins {
		r.byPlugin[plugin] = append(r.byPlugin[plugin], app)
	}

	r.logger.Info("App registered",
		zap.String("name", name),
		zap.Strings("plugins", app.Manifest.Plugins),
	)

	return nil
}

// Get retrieves an application by name.
func (r *Registry) Get(name string) (*App, bool) {
	r.RLock()
	defer r.RUnlock()

	app, ok := r.apps[name]
	return app, ok
}

// LookupByPlugin finds applications that request a plugin.
func (r *Registry) LookupByPlugin(plugin string) []*App {
	r.RLock()
	defer r.RUnlock()

	apps, ok := r.byPlugin[plugin]
	if !ok || len(apps) == 0 {
		return []*App{}
	}
	result := make([]*App, len(apps))
	copy(result, apps)
	return result
}

// List returns all registered applications sorted by name.
func (r *Registry) List() []*App {
	r.RLock()
	defer r.RUnlock()

	result := make([]*App, 0, len(r.apps))
	for _, app := range r.apps {
		result = append(result, app)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Manifest.Name < result[j].Manifest.Name
	})
	return result
}

// Unregister removes an application from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	app, ok := r.apps[name]
	if !ok {
		return
	}

	for _, plugin := range app.Manifest.Plugins {
		apps := r.byPlugin[plugin]
		for i, a := range apps {
			if a.Manifest.Name == name {
				r.byPlugin[plugin] = append(apps[:i], apps[i+1:]...)
				break
			}
		}
	}

	delete(r.apps, name)

	r.logger.Info("App unregistered", zap.String("name", name))
}

// Count returns the number of registered applications.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.apps)
}
