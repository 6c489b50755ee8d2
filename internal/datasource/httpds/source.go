package httpds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
)

// ErrNotPublished is returned when the sheets host answers with an HTML
// page instead of CSV, which is what a spreadsheet that is not shared
// publicly produces.
var ErrNotPublished = errors.New("httpds: spreadsheet is not published")

// StatusError reports a final non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: GET %s: status %d", e.URL, e.Code)
}

// Source is a datasource.Source backed by an HTTP GET.
type Source struct {
	client *Client
	url    string
	header http.Header
}

// NewSource binds a URL to c. header may be nil.
func NewSource(c *Client, rawURL string, header http.Header) *Source {
	return &Source{client: c, url: rawURL, header: header}
}

// Open performs the GET and returns the body of a 2xx response. Any other
// final status yields a *StatusError; an HTML body yields ErrNotPublished.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url, s.header)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: s.url, Code: resp.StatusCode}
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == "text/html" {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotPublished, s.url)
	}
	return resp.Body, nil
}

// DefaultSheetsBase is the Google Sheets host.
const DefaultSheetsBase = "https://docs.google.com"

// SheetCSVURL returns the CSV export URL of one tab of a published Google
// spreadsheet. base is normally DefaultSheetsBase.
func SheetCSVURL(base, spreadsheetID, sheet string) string {
	if base == "" {
		base = DefaultSheetsBase
	}
	q := url.Values{}
	q.Set("tqx", "out:csv")
	q.Set("sheet", sheet)
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?%s", base, url.PathEscape(spreadsheetID), q.Encode())
}
