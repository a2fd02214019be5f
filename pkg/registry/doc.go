/*
Package registry resolves the framework components available to route handlers.

Components come from Machines. A build aggregates, in order:

  - the global discovery source: machines registered with Register from init functions;
  - local machine sets, scoped to the whole process (ProcessMachines) or to a named context (LocalMachines).

Later sources override earlier ones on duplicate component names.

	reg, err := registry.NewBuilder().
		AddFromDiscovery().
		AddLocalMachines(registry.ProcessMachines()).
		AddLocalMachines(registry.LocalMachines(contextName)).
		Build(ctx)

	routes := registry.Components[router.Route](reg)
	codec, err := registry.MustLookup[session.PayloadCodec](reg, session.PayloadCodecName)

# Lifecycle

A Provider applies one of two policies to whatever a build produces:
OnStartup (one shared build, lock-free reads) or OnRequest (a fresh build per request).
*/
package registry
