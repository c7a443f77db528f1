package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	version   string
	logOutput io.Writer

	// import command
	prune bool
	watch bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported to MCP clients and in logs.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithLogOutput overrides where the JSON logs go.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithPrune makes RunImport delete notes whose file is gone.
func WithPrune(prune bool) Option {
	return func(a *application) {
		a.prune = prune
	}
}

// WithWatch keeps RunImport running, following vault changes.
func WithWatch(watch bool) Option {
	return func(a *application) {
		a.watch = watch
	}
}
