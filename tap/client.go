package tap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonwraymond/esotap/tabular"
)

// Client runs synchronous TAP queries against one endpoint base URL
// (the /sync path is appended per request).
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// NewClient creates a TAP transport client. A nil httpClient gets a
// default with a 120 second timeout; a nil logger falls back to the
// standard logrus logger.
func NewClient(endpoint string, httpClient *http.Client, logger logrus.FieldLogger) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, ErrNoEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Endpoint returns the endpoint base URL the client was built with.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Execute POSTs the query to the endpoint's sync resource and decodes the
// CSV result. Extra headers (typically a bearer authorization) are copied
// onto the request. Service faults, VOTable error documents included,
// come back as *QueryError.
func (c *Client) Execute(ctx context.Context, query string, header http.Header) (*tabular.Table, error) {
	form := url.Values{}
	form.Set("REQUEST", "doQuery")
	form.Set("LANG", "ADQL")
	form.Set("FORMAT", "csv")
	form.Set("QUERY", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/sync",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("tap: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, vals := range header {
		for _, v := range vals {
			req.Header.Add(key, v)
		}
	}

	c.logger.WithField("query", query).Debug("executing TAP query")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tap: executing query %q: %w", query, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tap: reading response for query %q: %w", query, err)
	}

	if resp.StatusCode != http.StatusOK {
		reason, _ := votableError(body)
		return nil, &QueryError{Query: query, Status: resp.StatusCode, Reason: reason}
	}
	// Some services report faults in a 200 VOTable document.
	if strings.Contains(resp.Header.Get("Content-Type"), "xml") {
		if reason, ok := votableError(body); ok {
			return nil, &QueryError{Query: query, Status: resp.StatusCode, Reason: reason}
		}
		return nil, &QueryError{Query: query, Status: resp.StatusCode,
			Reason: "unexpected XML response"}
	}

	table, err := tabular.ReadCSV(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tap: decoding result of query %q: %w", query, err)
	}
	return table, nil
}

// votableError extracts the message of a VOTable QUERY_STATUS=ERROR INFO
// element, the structured fault format TAP services use.
func votableError(body []byte) (string, bool) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	inError := false
	var msg strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "INFO" {
				continue
			}
			var name, value string
			for _, attr := range t.Attr {
				switch attr.Name.Local {
				case "name":
					name = attr.Value
				case "value":
					value = attr.Value
				}
			}
			inError = name == "QUERY_STATUS" && value == "ERROR"
		case xml.CharData:
			if inError {
				msg.Write(t)
			}
		case xml.EndElement:
			if inError && t.Name.Local == "INFO" {
				return strings.TrimSpace(msg.String()), true
			}
		}
	}
}
