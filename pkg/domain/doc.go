/*
Package domain contains the core types of the yax store.

It describes modules, namespace paths, actions and the execution context handed to
action handlers. This package is kept pure and free of I/O so adapters (HTTP, MCP,
manifests) can share it without pulling in the runtime.

# Key Entities

  - Module: a definition of state, reducers, actions and nested modules.
  - Path: the namespace of a module, joined with "/" to build action types.
  - Context: the commit/dispatch/select capabilities bound to one module.
  - Task: the future returned by every dispatch.
  - LifecycleHooks: callbacks for logging and metrics.
*/
package domain
