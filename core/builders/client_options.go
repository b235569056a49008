package builders

import "github.com/tabq-dev/tabq/core"

type (
	// Converter coerces one scanned driver value into a typed cell.
	// The column's database type name is passed for drivers that
	// overload a single Go type for many wire types.
	Converter func(val any, dbType string) core.Cell

	// Classifier maps a raw driver error into the shared taxonomy.
	Classifier func(err error) error
)

type clientConfig struct {
	convert  Converter
	classify Classifier
}

type ClientOption func(*clientConfig)

func WithConverter(fn Converter) ClientOption {
	return func(cc *clientConfig) {
		if fn != nil {
			cc.convert = fn
		}
	}
}

func WithClassifier(fn Classifier) ClientOption {
	return func(cc *clientConfig) {
		if fn != nil {
			cc.classify = fn
		}
	}
}
