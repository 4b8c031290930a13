// Package mountplan defines the mount plan artifact produced by configuration
// resolution, the module reference type shared by every module list, and the
// closed error taxonomy used across the resolution pipeline.
//
// A mount plan is the terminal output of profile compilation and config
// assembly: it names the session orchestrator and context modules, lists the
// provider/tool/hook modules to load, and carries compiled agent fragments.
// It is passed by value to the external session runtime and never mutated
// after construction.
package mountplan
