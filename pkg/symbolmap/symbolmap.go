// Package symbolmap translates canonical trading-pair symbols into the
// strings each data source understands, and declares which sources list
// which pairs.
package symbolmap

import "sort"

// SymbolMap holds the canonical -> (source -> sourceSymbol) mapping.
// An empty source symbol means the source does not list the pair.
// The zero value is usable and maps every symbol to itself.
type SymbolMap struct {
	mappings map[string]map[string]string
	symbols  []string
}

// New builds a SymbolMap from configuration. The symbols slice fixes the
// universe returned by GetSymbolsForDataSource; mappings may cover a subset.
func New(symbols []string, mappings map[string]map[string]string) *SymbolMap {
	m := &SymbolMap{
		mappings: make(map[string]map[string]string, len(mappings)),
		symbols:  append([]string(nil), symbols...),
	}
	for canonical, perSource := range mappings {
		entry := make(map[string]string, len(perSource))
		for source, sym := range perSource {
			entry[source] = sym
		}
		m.mappings[canonical] = entry
	}
	sort.Strings(m.symbols)
	return m
}

// GetSourceSymbol returns the source-specific symbol for a canonical one.
// Unknown canonicals and unmapped sources fall back to the canonical form.
func (m *SymbolMap) GetSourceSymbol(canonical, source string) string {
	if m == nil || m.mappings == nil {
		return canonical
	}
	perSource, ok := m.mappings[canonical]
	if !ok {
		return canonical
	}
	sym, ok := perSource[source]
	if !ok || sym == "" {
		return canonical
	}
	return sym
}

// IsSymbolSupportedBySource reports whether a source lists the pair. Only an
// explicit empty mapping marks a pair unsupported; absence means supported.
func (m *SymbolMap) IsSymbolSupportedBySource(canonical, source string) bool {
	if m == nil || m.mappings == nil {
		return true
	}
	perSource, ok := m.mappings[canonical]
	if !ok {
		return true
	}
	sym, ok := perSource[source]
	if !ok {
		return true
	}
	return sym != ""
}

// GetSymbolsForDataSource returns the configured canonical symbols the
// source supports, in sorted order.
func (m *SymbolMap) GetSymbolsForDataSource(source string) []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.symbols))
	for _, canonical := range m.symbols {
		if m.IsSymbolSupportedBySource(canonical, source) {
			out = append(out, canonical)
		}
	}
	return out
}

// Symbols returns the configured canonical symbol universe.
func (m *SymbolMap) Symbols() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.symbols...)
}
