// Package importer scrapes the upstream did:plc directory's /export
// endpoint and appends new operations to the local store. It never
// validates what it ingests — the authoritative operation log is
// accepted as published; plccore.ValidateLog re-derives every
// document from first principles at resolution time.
package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/primal-host/plcmirror/internal/plccore"
)

// Stats tracks import progress. Run logs it once, in its summary line
// when it stops; it is not logged while polling.
type Stats struct {
	PagesFetched int
	OpsAppended  int
	OpsSkipped   int
	Errors       int
}

// opStore is the subset of *store.Store the importer needs, narrowed to
// an interface so tests can exercise fetchPage/Run against a fake.
type opStore interface {
	AppendOp(ctx context.Context, did, cidStr string, op *plccore.Op, createdAt time.Time) (bool, error)
	Cursor(ctx context.Context) (time.Time, error)
	SetCursor(ctx context.Context, after time.Time) error
}

// Importer long-polls an upstream PLC directory's export endpoint and
// appends new operations to store.
type Importer struct {
	Upstream string
	PageSize int
	Poll     time.Duration

	store  opStore
	client *retryablehttp.Client
	stats  Stats
}

// New creates an Importer backed by s, scraping upstream.
func New(upstream string, pageSize int, poll time.Duration, s opStore) *Importer {
	client := retryablehttp.NewClient()
	client.RetryMax = 5
	client.Logger = nil // logging goes through the standard log package, not retryablehttp's own

	return &Importer{
		Upstream: upstream,
		PageSize: pageSize,
		Poll:     poll,
		store:    s,
		client:   client,
	}
}

// exportRow mirrors the on-wire jsonlines shape produced by an export
// collaborator: {"did","operation","cid","nullified","createdAt"}.
type exportRow struct {
	DID       string      `json:"did"`
	Operation *plccore.Op `json:"operation"`
	CID       string      `json:"cid"`
	Nullified bool        `json:"nullified"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Run polls the upstream export endpoint until ctx is cancelled,
// appending every new operation to the store and advancing the durable
// cursor after each page.
func (imp *Importer) Run(ctx context.Context) error {
	after, err := imp.store.Cursor(ctx)
	if err != nil {
		return fmt.Errorf("importer: read cursor: %w", err)
	}
	log.Printf("importer: starting from cursor %s", after.Format(time.RFC3339))

	ticker := time.NewTicker(imp.Poll)
	defer ticker.Stop()

	for {
		last, err := imp.fetchPage(ctx, after)
		if err != nil {
			imp.stats.Errors++
			log.Printf("importer: fetch page after=%s: %v", after.Format(time.RFC3339), err)
		} else if !last.IsZero() {
			after = last
			if err := imp.store.SetCursor(ctx, after); err != nil {
				log.Printf("importer: set cursor: %v", err)
			}
		}

		select {
		case <-ctx.Done():
			log.Printf("importer: stopping (pages=%d appended=%d skipped=%d errors=%d)",
				imp.stats.PagesFetched, imp.stats.OpsAppended, imp.stats.OpsSkipped, imp.stats.Errors)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// fetchPage fetches one export page after the given cursor and appends
// every row to the store, returning the createdAt of the last row
// fetched (or the zero time if the page was empty).
func (imp *Importer) fetchPage(ctx context.Context, after time.Time) (time.Time, error) {
	u, err := url.Parse(imp.Upstream + "/export")
	if err != nil {
		return time.Time{}, fmt.Errorf("parse upstream url: %w", err)
	}
	q := u.Query()
	q.Set("count", strconv.Itoa(imp.PageSize))
	if !after.IsZero() {
		q.Set("after", after.UTC().Format(time.RFC3339Nano))
	}
	u.RawQuery = q.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := imp.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}

	imp.stats.PagesFetched++

	var last time.Time
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var row exportRow
		if err := json.Unmarshal(line, &row); err != nil {
			imp.stats.Errors++
			log.Printf("importer: malformed export line: %v", err)
			continue
		}

		appended, err := imp.store.AppendOp(ctx, row.DID, row.CID, row.Operation, row.CreatedAt)
		if err != nil {
			imp.stats.Errors++
			log.Printf("importer: append %s/%s: %v", row.DID, row.CID, err)
			continue
		}
		if appended {
			imp.stats.OpsAppended++
		} else {
			imp.stats.OpsSkipped++
		}
		last = row.CreatedAt
	}
	if err := sc.Err(); err != nil {
		return last, fmt.Errorf("scan export body: %w", err)
	}

	return last, nil
}
