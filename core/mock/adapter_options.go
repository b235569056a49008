package mock

import (
	"context"

	"github.com/tabq-dev/tabq/core"
)

type adapterConfig struct {
	querySideEffects map[string]func(context.Context) error
	schema           []*core.SchemaObject
	connectErr       error
	onClose          func()

	resultStreamOptions []ResultStreamOption
}

type AdapterOption func(*adapterConfig)

// AdapterWithQuerySideEffect registers a function that is invoked before
// any query matching the statement returns its stream.
func AdapterWithQuerySideEffect(statement string, fn func(context.Context) error) AdapterOption {
	return func(c *adapterConfig) {
		c.querySideEffects[statement] = fn
	}
}

func AdapterWithSchema(schema []*core.SchemaObject) AdapterOption {
	return func(c *adapterConfig) {
		c.schema = schema
	}
}

func AdapterWithConnectError(err error) AdapterOption {
	return func(c *adapterConfig) {
		c.connectErr = err
	}
}

func AdapterWithOnClose(fn func()) AdapterOption {
	return func(c *adapterConfig) {
		c.onClose = fn
	}
}

func AdapterWithResultStreamOpts(opts ...ResultStreamOption) AdapterOption {
	return func(c *adapterConfig) {
		c.resultStreamOptions = opts
	}
}
