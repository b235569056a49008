package mock

import (
	"context"
	"fmt"

	"github.com/tabq-dev/tabq/core"
)

var _ core.Session = (*session)(nil)

type session struct {
	rows   []core.Row
	config *adapterConfig
}

func (s *session) Query(ctx context.Context, statement string) (core.ResultStream, error) {
	eff, ok := s.config.querySideEffects[statement]
	if ok {
		err := eff(ctx)
		if err != nil {
			return nil, fmt.Errorf("side effect error: %w", err)
		}
	}

	return NewResultStream(s.rows, s.config.resultStreamOptions...), nil
}

func (s *session) ListSchema(_ context.Context) ([]*core.SchemaObject, error) {
	return s.config.schema, nil
}

func (s *session) Close() error {
	if s.config.onClose != nil {
		s.config.onClose()
	}
	return nil
}

var _ core.Adapter = (*Adapter)(nil)

type Adapter struct {
	rows   []core.Row
	config *adapterConfig
}

func NewAdapter(rows []core.Row, opts ...AdapterOption) *Adapter {
	config := &adapterConfig{
		querySideEffects: make(map[string]func(context.Context) error),

		resultStreamOptions: []ResultStreamOption{},
	}
	for _, opt := range opts {
		opt(config)
	}

	return &Adapter{
		rows:   rows,
		config: config,
	}
}

func (a *Adapter) Connect(_ context.Context, _ core.Descriptor) (core.Session, error) {
	if a.config.connectErr != nil {
		return nil, a.config.connectErr
	}

	return &session{
		rows:   a.rows,
		config: a.config,
	}, nil
}
