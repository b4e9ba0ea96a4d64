package broker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/finassist/brokersync/internal/domain"
)

// FilePatterns lists the filename globs a broker's exports are expected to
// match, used for input discovery and cheap file/parser matching.
type FilePatterns struct {
	Positions []string
	Balances  []string
}

// Parser converts one broker's export files into canonical portfolio data.
// Implementations are pure functions of file content and safe to reuse.
type Parser interface {
	ParsePositions(path string) ([]domain.Position, error)
	ParseBalances(path string) (domain.AccountBalances, error)
	ValidateFormat(path string) bool
	FilePatterns() FilePatterns
}

// ParserFactory constructs a Parser for one broker.
type ParserFactory func() Parser

// FormatError indicates an input file does not match the broker's expected
// layout. Fatal for that file; carries either the missing field names or a
// description of the offending content for the operator.
type FormatError struct {
	Path    string
	Missing []string
	Problem string
}

func (e *FormatError) Error() string {
	if e.Problem != "" {
		return fmt.Sprintf("unrecognized format in %s: %s", e.Path, e.Problem)
	}
	return fmt.Sprintf("unrecognized format in %s: missing %s", e.Path, strings.Join(e.Missing, ", "))
}

// UnsupportedBrokerError indicates no parser is registered for the requested
// broker. The message lists supported brokers as the remediation path.
type UnsupportedBrokerError struct {
	Broker    domain.BrokerType
	Supported []domain.BrokerType
}

func (e *UnsupportedBrokerError) Error() string {
	names := make([]string, len(e.Supported))
	for i, b := range e.Supported {
		names[i] = string(b)
	}
	return fmt.Sprintf("unsupported broker %q (supported: %s)", e.Broker, strings.Join(names, ", "))
}

var registry = map[domain.BrokerType]ParserFactory{}

func init() {
	Register(domain.BrokerFidelity, func() Parser { return NewFidelityParser() })
	// Schwab and Vanguard identifiers exist but have no parser yet; resolving
	// them fails loudly rather than misparsing.
}

// Register adds or replaces the parser factory for a broker.
func Register(b domain.BrokerType, factory ParserFactory) {
	registry[b] = factory
}

// ForBroker resolves the parser for a broker, or returns an
// UnsupportedBrokerError naming the registered alternatives.
func ForBroker(b domain.BrokerType) (Parser, error) {
	factory, ok := registry[domain.BrokerType(strings.ToLower(string(b)))]
	if !ok {
		return nil, &UnsupportedBrokerError{Broker: b, Supported: Supported()}
	}
	return factory(), nil
}

// IsSupported reports whether a parser is registered for the broker.
func IsSupported(b domain.BrokerType) bool {
	_, ok := registry[domain.BrokerType(strings.ToLower(string(b)))]
	return ok
}

// Supported returns the registered broker identifiers in stable order.
func Supported() []domain.BrokerType {
	out := make([]domain.BrokerType, 0, len(registry))
	for b := range registry {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
