package core

// Module is a unit of capability that participates in the app lifecycle.
// Modules are identified by Name; two values with the same name are the same module.
type Module interface {
	Name() string
	// DependsOn declares modules that must be loaded alongside this one.
	DependsOn() []Module
	// Configure registers providers and contributions into the container.
	Configure(c Container) error
}

// ResolveModuleDeps expands mods into its transitive dependency closure.
//
// The list is walked positionally while it grows, so dependencies of appended
// modules are expanded too. A dependency that is not yet present is appended at
// the end, never before its dependent: the result guarantees completeness of the
// set, not load order. Cycles terminate since insertion is keyed by name.
//
// Example, with keybinding and menu both depending on command:
//
//	ResolveModuleDeps([]Module{keybinding, menu})
//	  -> [keybinding, menu, command]
//
// Modules that rely on a provider of another module must therefore resolve it
// lazily, at call time, rather than while configuring.
func ResolveModuleDeps(mods []Module) []Module {
	seen := make(map[string]bool, len(mods))
	out := make([]Module, 0, len(mods))
	for _, m := range mods {
		if m == nil || seen[m.Name()] {
			continue
		}
		seen[m.Name()] = true
		out = append(out, m)
	}

	for i := 0; i < len(out); i++ {
		for _, dep := range out[i].DependsOn() {
			if dep == nil || seen[dep.Name()] {
				continue
			}
			seen[dep.Name()] = true
			out = append(out, dep)
		}
	}
	return out
}

// ModuleNames is a logging helper.
func ModuleNames(mods []Module) []string {
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Name())
	}
	return names
}
