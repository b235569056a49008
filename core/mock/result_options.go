package mock

import (
	"time"

	"github.com/tabq-dev/tabq/core"
)

type resultStreamConfig struct {
	nextSleep time.Duration
	columns   []core.Column
	nextErr   error
}

type ResultStreamOption func(*resultStreamConfig)

func ResultStreamWithNextSleep(s time.Duration) ResultStreamOption {
	return func(c *resultStreamConfig) {
		c.nextSleep = s
	}
}

func ResultStreamWithColumns(columns []core.Column) ResultStreamOption {
	return func(c *resultStreamConfig) {
		c.columns = columns
	}
}

func ResultStreamWithNextError(err error) ResultStreamOption {
	return func(c *resultStreamConfig) {
		c.nextErr = err
	}
}
