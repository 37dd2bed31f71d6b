// Package config locates tfsync projects and reads their configuration.
//
// # Project layout
//
// A project is the nearest directory, walking up from the working
// directory, that holds a .tfsync directory:
//
//	.tfsync/
//	    config.yaml       optional project configuration
//	    journal.db        reconciliation history, when enabled
//	    resources/        resource definitions (*.yml, *.yaml)
//
// Resource definitions are searched in the resources directory of the
// project and then in those of every enclosing project, so that a nested
// project can override or extend the definitions of its parents.
//
// # Configuration
//
// config.yaml is decoded over DefaultProject and checked twice: against the
// builtin CUE #Project schema and with struct validation tags.
//
//	terraform:
//	  binary: terraform
//	  show_resources: values/root_module/resources/address
//	expressions: expr          # or starlark
//	timeout: 5m                # per external process, 0 disables
//	journal:
//	  enabled: true
//	  path: journal.db
//	metrics:
//	  textfile: /var/lib/node_exporter/tfsync.prom
//	tracing:
//	  exporter: none           # stdout, otlp
//	logging:
//	  level: info
//	  format: console
//
// # Schemas
//
// SchemaRegistry holds CUE definitions. The builtin #Resource definition
// checks the shape of every merged resource definition before it is
// loaded; keys it does not know are accepted.
package config
