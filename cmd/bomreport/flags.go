package main

import (
	"strings"

	"bomcost/internal/filter"
)

// multiFlag collects a repeatable string flag. A flag given only with empty
// values (-trip "") selects nothing; a flag never given selects everything.
type multiFlag struct {
	set    bool
	values []string
}

func (m *multiFlag) String() string { return strings.Join(m.values, ",") }

func (m *multiFlag) Set(v string) error {
	m.set = true
	if v = strings.TrimSpace(v); v != "" {
		m.values = append(m.values, v)
	}
	return nil
}

func (m *multiFlag) selection() filter.Selection {
	if !m.set {
		return filter.All()
	}
	return filter.Only(m.values...)
}
