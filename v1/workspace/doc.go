// Package workspace assembles a workbench session: logger, metrics, tracer,
// credential vault, tab record store, database drivers and the tab
// synchronizer.
//
// With fx, include Options(cfg) in the application; the synchronizer
// restores persisted tabs on start and tears every tab down on stop:
//
//	app := fx.New(workspace.Options(cfg), fx.Populate(&ws))
//
// Without fx, New builds a Workspace from explicit dependencies and Open
// runs the fx graph for one-shot callers such as the CLI.
package workspace
