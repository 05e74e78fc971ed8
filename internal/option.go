package internal

import (
	"io"
	"os"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	console io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects console logging, e.g. to stderr when stdout is a
// protocol channel.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.console = w
	}
}

func newApplication(opts []Option) *application {
	app := &application{console: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	return app
}
