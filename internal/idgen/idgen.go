// Package idgen generates short, URL-safe identifiers for charts and requests.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// ChartPrefix marks identifiers of rendered chart instances.
	ChartPrefix = "chart-"
	// RequestPrefix marks identifiers assigned by the tracing middleware.
	RequestPrefix = "req-"
)

// Alphabet is the character set of the random part of an ID.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Length is the number of random characters, excluding the prefix.
const Length = 12

// NewChartID returns a new chart identifier such as "chart-3k9x0a1b2c4d".
func NewChartID() (string, error) {
	return WithPrefix(ChartPrefix)
}

// NewRequestID returns a new request identifier.
func NewRequestID() (string, error) {
	return WithPrefix(RequestPrefix)
}

// WithPrefix returns prefix followed by Length random characters from Alphabet.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
