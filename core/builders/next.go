package builders

import (
	"errors"

	"github.com/tabq-dev/tabq/core"
)

// NextSingle creates next and hasNext functions from a single cell.
func NextSingle(value core.Cell) (func() (core.Row, error), func() bool) {
	has := true

	next := func() (core.Row, error) {
		if !has {
			return nil, errors.New("no next row")
		}
		has = false
		return core.Row{value}, nil
	}

	hasNext := func() bool {
		return has
	}

	return next, hasNext
}

// NextNil creates next and hasNext functions that return no rows.
func NextNil() (func() (core.Row, error), func() bool) {
	next := func() (core.Row, error) {
		return nil, errors.New("no next row")
	}

	hasNext := func() bool {
		return false
	}

	return next, hasNext
}
