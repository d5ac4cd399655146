// Package loader provides the plugin-like feature loading system.
//
// Each feature of the local agent API implements the Feature interface:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager keeps the registered features and loads the enabled ones in
// registration order via LoadAll.
package loader
