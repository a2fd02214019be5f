package registry

import "fmt"

// NotFoundError is returned when a named component is required but absent.
type NotFoundError struct {
	Name string
	Type string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("component not found: %q of type %s", e.Name, e.Type)
}

// BuildError is returned when a machine fails during a registry build.
// No registry is published when a build fails.
type BuildError struct {
	Source string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("registry build failed in %s: %v", e.Source, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
