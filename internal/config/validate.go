package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"bomcost/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding.
//
// Path is a dotted path into the config (e.g. "source.sheets.spreadsheet_id",
// "families[2].slots[0].name_column"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of a, which should already have
// defaults applied. It does not mutate a.
func Validate(a App) []Issue {
	var issues []Issue
	issues = append(issues, validateSource(a.Source)...)
	issues = append(issues, validateDatasets(a.Datasets)...)
	issues = append(issues, validateFamilies(a.Families)...)
	issues = append(issues, validateReport(a.Report, a.Source.Cache)...)
	issues = append(issues, validateMetrics(a.Metrics)...)
	issues = append(issues, validateAuth(a.Auth)...)
	issues = append(issues, validateStorage(a.Storage)...)
	return issues
}

func errorf(path, format string, args ...any) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)}
}

func warnf(path, format string, args ...any) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func validateSource(s Source) []Issue {
	var issues []Issue

	switch s.Kind {
	case "sheets":
		if blank(s.Sheets.SpreadsheetID) {
			issues = append(issues, errorf("source.sheets.spreadsheet_id", "sheets source requires a spreadsheet id"))
		}
	case "dir":
		if blank(s.Dir.Path) {
			issues = append(issues, errorf("source.dir.path", "dir source requires a non-empty path"))
		}
	case "workbook":
		if blank(s.Workbook.Path) {
			issues = append(issues, errorf("source.workbook.path", "workbook source requires a non-empty path"))
		} else if !strings.HasSuffix(strings.ToLower(s.Workbook.Path), ".xlsx") {
			issues = append(issues, warnf("source.workbook.path", "%q does not look like an .xlsx file", s.Workbook.Path))
		}
	case "":
		issues = append(issues, errorf("source.kind", "source.kind must not be empty"))
	default:
		issues = append(issues, errorf("source.kind", "unknown source kind %q (want sheets, dir or workbook)", s.Kind))
	}

	if s.Cache.Size < 0 {
		issues = append(issues, errorf("source.cache.size", "cache size must not be negative"))
	}
	if s.Cache.TTL < 0 {
		issues = append(issues, errorf("source.cache.ttl", "cache ttl must not be negative"))
	}
	if s.HTTP.MaxRetries < 0 {
		issues = append(issues, errorf("source.http.max_retries", "max_retries must not be negative"))
	}
	if s.HTTP.InsecureSkipVerify {
		issues = append(issues, warnf("source.http.insecure_skip_verify", "TLS verification is disabled"))
	}
	if c := s.Options.String(OptComma, ""); c != "" && utf8.RuneCountInString(c) != 1 {
		issues = append(issues, errorf("source.options.comma", "comma must be a single character, got %q", c))
	}
	for _, k := range s.Options.Unknown() {
		issues = append(issues, warnf("source.options."+k, "unknown source option %q is ignored", k))
	}
	return issues
}

func validateDatasets(d Datasets) []Issue {
	var issues []Issue
	for _, ds := range []struct{ path, name string }{
		{"datasets.order_list", d.OrderList},
		{"datasets.bom", d.BOM},
		{"datasets.price_list", d.PriceList},
	} {
		if blank(ds.name) {
			issues = append(issues, errorf(ds.path, "dataset name must not be empty"))
		}
	}
	return issues
}

func validateFamilies(fams []Family) []Issue {
	var issues []Issue
	if len(fams) == 0 {
		return append(issues, errorf("families", "at least one family is required"))
	}
	seen := map[string]int{}
	for i, f := range fams {
		path := fmt.Sprintf("families[%d]", i)
		if blank(f.Prefix) {
			issues = append(issues, errorf(path+".prefix", "family prefix must not be empty"))
			continue
		}
		if j, dup := seen[f.Prefix]; dup {
			issues = append(issues, errorf(path+".prefix", "duplicate family %q (also families[%d])", f.Prefix, j))
		}
		seen[f.Prefix] = i
		if blank(f.Dataset) {
			issues = append(issues, errorf(path+".dataset", "family dataset must not be empty"))
		}
		if len(f.Slots) > 0 {
			if _, err := schema.New(f.Prefix, f.Slots); err != nil {
				issues = append(issues, errorf(path+".slots", "%v", err))
			}
		}
	}
	return issues
}

func validateReport(r Report, c Cache) []Issue {
	var issues []Issue
	if r.MaxStaleness < 0 {
		issues = append(issues, errorf("report.max_staleness", "max_staleness must not be negative"))
	}
	if c.TTL > 0 && r.MaxStaleness > c.TTL {
		issues = append(issues, warnf("report.max_staleness",
			"max_staleness %s exceeds cache ttl %s; snapshots are evicted before they go stale", r.MaxStaleness.D(), c.TTL.D()))
	}
	if blank(r.Currency) {
		issues = append(issues, warnf("report.currency", "currency is empty"))
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "none", "", "prometheus":
	case "pushgateway":
		if blank(m.PushgatewayURL) {
			issues = append(issues, errorf("metrics.pushgateway_url", "pushgateway backend requires a URL"))
		}
	case "datadog":
		if blank(m.Datadog.Addr) {
			issues = append(issues, errorf("metrics.datadog.addr", "datadog backend requires an agent address"))
		}
	default:
		issues = append(issues, warnf("metrics.backend", "unknown metrics backend %q; metrics disabled", m.Backend))
	}
	return issues
}

func validateAuth(a Auth) []Issue {
	var issues []Issue
	if len(a.Users) == 0 {
		return issues
	}
	switch {
	case a.JWTSecret == "":
		issues = append(issues, errorf("auth.jwt_secret", "users are configured but jwt_secret is empty (set %sJWT_SECRET)", EnvPrefix))
	case len(a.JWTSecret) < 32:
		issues = append(issues, warnf("auth.jwt_secret", "jwt_secret is shorter than 32 bytes"))
	}
	if a.TokenTTL <= 0 {
		issues = append(issues, errorf("auth.token_ttl", "token_ttl must be positive"))
	}
	seen := map[string]struct{}{}
	for i, u := range a.Users {
		path := fmt.Sprintf("auth.users[%d]", i)
		if blank(u.Username) {
			issues = append(issues, errorf(path+".username", "username must not be empty"))
		}
		if _, dup := seen[u.Username]; dup {
			issues = append(issues, errorf(path+".username", "duplicate user %q", u.Username))
		}
		seen[u.Username] = struct{}{}
		if !strings.HasPrefix(u.PasswordHash, "$2") {
			issues = append(issues, errorf(path+".password_hash", "password_hash must be a bcrypt hash"))
		}
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue
	if s.Kind == "" {
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, errorf("storage.kind", "unknown storage kind %q; ensure a matching backend is registered", s.Kind))
	}
	if blank(s.DSN) {
		issues = append(issues, errorf("storage.dsn", "storage.dsn must not be empty"))
	}
	if blank(s.Table) {
		issues = append(issues, errorf("storage.table", "storage.table must not be empty"))
	}
	return issues
}
