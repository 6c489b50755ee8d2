// Package config defines the JSON configuration model of the report tools.
// A config file names where the sheets live, which datasets and columns to
// read, the material families, and the ambient settings (logging, metrics,
// auth, export sink). Decoding uses encoding/json; Options carries
// kind-specific settings with typed getters.
//
// Example (trimmed):
//
//	{
//	  "source":   { "kind": "sheets", "sheets": { "spreadsheet_id": "1AbC..." },
//	                "cache": { "size": 32, "ttl": "10m" } },
//	  "families": [ { "prefix": "WOOD", "dataset": "ORDER BY WOOD" } ],
//	  "report":   { "max_staleness": "10m", "currency": "RM" },
//	  "storage":  { "kind": "sqlite", "dsn": "file:report.db", "table": "costed_usage" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"bomcost/internal/costing"
	"bomcost/internal/logging"
	"bomcost/internal/metrics/datadog"
	"bomcost/internal/orders"
	"bomcost/internal/schema"
)

// App is the top-level object decoded from a config file.
type App struct {
	Source   Source         `json:"source"`
	Datasets Datasets       `json:"datasets"`
	Columns  Columns        `json:"columns"`
	Families []Family       `json:"families"`
	Report   Report         `json:"report"`
	Metrics  Metrics        `json:"metrics"`
	Logging  logging.Config `json:"logging"`
	Auth     Auth           `json:"auth"`
	Storage  Storage        `json:"storage"`
	Server   Server         `json:"server"`
}

// Source selects where datasets are read from.
type Source struct {
	// Kind is "sheets", "dir" or "workbook".
	Kind     string       `json:"kind"`
	Sheets   SourceSheets `json:"sheets"`
	Dir      SourcePath   `json:"dir"`
	Workbook SourcePath   `json:"workbook"`
	Cache    Cache        `json:"cache"`
	HTTP     HTTP         `json:"http"`
	// Options holds parser settings: comma (string), strict (bool),
	// header_map (object).
	Options Options `json:"options"`
}

// SourceSheets configures the "sheets" kind.
type SourceSheets struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	// Base overrides the sheets host.
	Base string `json:"base"`
}

// SourcePath configures the "dir" and "workbook" kinds.
type SourcePath struct {
	Path string `json:"path"`
}

// Cache configures the snapshot cache. A zero TTL disables caching.
type Cache struct {
	Size int      `json:"size"`
	TTL  Duration `json:"ttl"`
}

// HTTP configures the retrying client used by the sheets source.
type HTTP struct {
	Timeout            Duration `json:"timeout"`
	MaxRetries         int      `json:"max_retries"`
	InitialBackoff     Duration `json:"initial_backoff"`
	MaxBackoff         Duration `json:"max_backoff"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify"`
}

// Datasets names the non-family datasets.
type Datasets struct {
	OrderList string `json:"order_list"`
	BOM       string `json:"bom"`
	PriceList string `json:"price_list"`
}

// Columns names the columns read from each dataset.
type Columns struct {
	Orders   orders.Columns       `json:"orders"`
	BOMModel string               `json:"bom_model"`
	Price    costing.PriceColumns `json:"price"`
}

// Family is one material family report.
type Family struct {
	// Prefix is the family tag in column names: WOOD, SPONGE, FABRIC, O.M.
	Prefix string `json:"prefix"`
	// Dataset is the order sheet of the family, "ORDER BY <prefix>" by default.
	Dataset string `json:"dataset"`
	// Slots pins the slot layout. Empty means infer from the header.
	Slots []schema.Slot `json:"slots"`
}

// Report holds report-wide settings.
type Report struct {
	// MaxStaleness bounds the age of cached snapshots a report may use.
	MaxStaleness Duration `json:"max_staleness"`
	Currency     string   `json:"currency"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none", "pushgateway", "prometheus" (scrape, server only)
	// or "datadog".
	Backend        string         `json:"backend"`
	Job            string         `json:"job"`
	PushgatewayURL string         `json:"pushgateway_url"`
	Datadog        datadog.Config `json:"datadog"`
}

// Auth configures login for the web server.
type Auth struct {
	JWTSecret string   `json:"jwt_secret"`
	Issuer    string   `json:"issuer"`
	TokenTTL  Duration `json:"token_ttl"`
	Users     []User   `json:"users"`
}

// User is a login with a bcrypt password hash.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

// Storage configures the optional export sink. An empty Kind disables it.
type Storage struct {
	// Kind is "sqlite", "postgres" or "mssql".
	Kind            string `json:"kind"`
	DSN             string `json:"dsn"`
	Table           string `json:"table"`
	AutoCreateTable bool   `json:"auto_create_table"`
}

// Server configures the web server.
type Server struct {
	Addr string `json:"addr"`
}

// DefaultPrefixes are the material families of the order sheets.
var DefaultPrefixes = []string{"WOOD", "SPONGE", "FABRIC", "O.M"}

// Default returns the configuration used when a field is left empty.
func Default() App {
	fams := make([]Family, 0, len(DefaultPrefixes))
	for _, p := range DefaultPrefixes {
		fams = append(fams, Family{Prefix: p, Dataset: "ORDER BY " + p})
	}
	return App{
		Source: Source{
			Kind:  "sheets",
			Cache: Cache{Size: 32, TTL: Duration(10 * time.Minute)},
			HTTP: HTTP{
				Timeout:        Duration(30 * time.Second),
				MaxRetries:     3,
				InitialBackoff: Duration(200 * time.Millisecond),
				MaxBackoff:     Duration(5 * time.Second),
			},
			Options: Options{},
		},
		Datasets: Datasets{OrderList: "ORDER LIST", BOM: "DATA BOM", PriceList: "PRICE LIST"},
		Columns: Columns{
			Orders:   orders.DefaultColumns(),
			BOMModel: "CONFIRM MODEL NAME",
			Price:    costing.DefaultPriceColumns(),
		},
		Families: fams,
		Report:   Report{MaxStaleness: Duration(10 * time.Minute), Currency: "RM"},
		Metrics:  Metrics{Backend: "none", Job: "bomreport"},
		Logging:  logging.Config{Level: "info", Format: "json"},
		Auth:     Auth{Issuer: "bomcost", TokenTTL: Duration(12 * time.Hour)},
		Server:   Server{Addr: ":8080"},
	}
}

// WithDefaults fills every empty field of a from Default.
func (a App) WithDefaults() App {
	d := Default()
	if a.Source.Kind == "" {
		a.Source.Kind = d.Source.Kind
	}
	if a.Source.Cache.Size == 0 {
		a.Source.Cache.Size = d.Source.Cache.Size
	}
	h := &a.Source.HTTP
	if h.Timeout == 0 {
		h.Timeout = d.Source.HTTP.Timeout
	}
	if h.InitialBackoff == 0 {
		h.InitialBackoff = d.Source.HTTP.InitialBackoff
	}
	if h.MaxBackoff == 0 {
		h.MaxBackoff = d.Source.HTTP.MaxBackoff
	}
	if a.Source.Options == nil {
		a.Source.Options = Options{}
	}
	a.Datasets.OrderList = pick(a.Datasets.OrderList, d.Datasets.OrderList)
	a.Datasets.BOM = pick(a.Datasets.BOM, d.Datasets.BOM)
	a.Datasets.PriceList = pick(a.Datasets.PriceList, d.Datasets.PriceList)
	a.Columns.Orders = a.Columns.Orders.WithDefaults()
	a.Columns.BOMModel = pick(a.Columns.BOMModel, d.Columns.BOMModel)
	a.Columns.Price.Description = pick(a.Columns.Price.Description, d.Columns.Price.Description)
	a.Columns.Price.UnitPrice = pick(a.Columns.Price.UnitPrice, d.Columns.Price.UnitPrice)
	if len(a.Families) == 0 {
		a.Families = d.Families
	}
	for i := range a.Families {
		f := &a.Families[i]
		f.Prefix = strings.ToUpper(strings.TrimSpace(f.Prefix))
		f.Dataset = pick(f.Dataset, "ORDER BY "+f.Prefix)
	}
	if a.Report.MaxStaleness == 0 {
		a.Report.MaxStaleness = d.Report.MaxStaleness
	}
	a.Report.Currency = pick(a.Report.Currency, d.Report.Currency)
	a.Metrics.Backend = pick(a.Metrics.Backend, d.Metrics.Backend)
	a.Metrics.Job = pick(a.Metrics.Job, d.Metrics.Job)
	a.Logging.Level = pick(a.Logging.Level, d.Logging.Level)
	a.Logging.Format = pick(a.Logging.Format, d.Logging.Format)
	a.Auth.Issuer = pick(a.Auth.Issuer, d.Auth.Issuer)
	if a.Auth.TokenTTL == 0 {
		a.Auth.TokenTTL = d.Auth.TokenTTL
	}
	a.Server.Addr = pick(a.Server.Addr, d.Server.Addr)
	return a
}

// Family returns the family with the given prefix, case-insensitively.
func (a App) Family(prefix string) (Family, bool) {
	p := strings.ToUpper(strings.TrimSpace(prefix))
	for _, f := range a.Families {
		if f.Prefix == p {
			return f, true
		}
	}
	return Family{}, false
}

// Load reads the JSON file at path. Unknown fields are rejected so that
// typos surface instead of silently falling back to defaults. The result
// has defaults applied but no environment overrides.
func Load(path string) (App, error) {
	f, err := os.Open(path)
	if err != nil {
		return App{}, fmt.Errorf("config: open: %w", err)
	}
	defer f.Close()

	var a App
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return App{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return a.WithDefaults(), nil
}

func pick(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Duration is a time.Duration that decodes from a Go duration string such
// as "10m" or from a number of seconds.
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("config: duration must be a string or seconds: %s", b)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}
