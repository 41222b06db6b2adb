package hnr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/macropower/reap/pkg/log"
	"github.com/macropower/reap/pkg/metrics"
	"github.com/macropower/reap/pkg/torrent"
)

const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 1
	DefaultTimeout     = 30 * time.Second

	maxErrorBody = 512
)

// DefaultSatisfiedCodes are the status codes meaning the obligation is met.
var DefaultSatisfiedCodes = []int{20, 21}

var (
	tracer = otel.Tracer("github.com/macropower/reap/pkg/hnr")

	errMissingHash   = errors.New("missing torrent.info_hash")
	errMissingStatus = errors.New("missing status.hnr_status_code")
)

// Record is the remote status of one torrent.
type Record struct {
	Hash       string
	StatusCode int
}

// Client queries the remote HNR API.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	satisfied   map[int]bool
	host        string
	token       string
	batchSize   int
	concurrency int
	timeout     time.Duration
}

// ClientOpt configures a [Client].
type ClientOpt func(*Client)

// WithHTTPClient sets the HTTP client used for lookups.
func WithHTTPClient(httpClient *http.Client) ClientOpt {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSatisfiedCodes replaces [DefaultSatisfiedCodes].
func WithSatisfiedCodes(codes ...int) ClientOpt {
	return func(c *Client) {
		c.satisfied = make(map[int]bool, len(codes))
		for _, code := range codes {
			c.satisfied[code] = true
		}
	}
}

// WithBatchSize sets the maximum number of info-hashes per request.
// Values below 1 are ignored.
func WithBatchSize(n int) ClientOpt {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithConcurrency sets how many batches may be in flight at once.
// Values below 1 are ignored.
func WithConcurrency(n int) ClientOpt {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithRateLimit limits requests per second. Zero disables the limit.
func WithRateLimit(rps float64) ClientOpt {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}

		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithTimeout bounds each request. Zero leaves requests bounded only by the
// caller's context.
func WithTimeout(d time.Duration) ClientOpt {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a new [Client] for the API at host, authenticating with
// the bearer token.
func NewClient(host, token string, opts ...ClientOpt) *Client {
	c := &Client{
		httpClient:  cleanhttp.DefaultPooledClient(),
		host:        host,
		token:       token,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
	}

	WithSatisfiedCodes(DefaultSatisfiedCodes...)(c)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Satisfied reports whether code means the obligation is met.
func (c *Client) Satisfied(code int) bool {
	return c.satisfied[code]
}

// CheckTorrents returns, for every info-hash the API reported on, whether its
// HNR obligation is satisfied. Hashes missing from the result were not
// reported.
func (c *Client) CheckTorrents(ctx context.Context, hashes []string) (map[string]bool, error) {
	records, err := c.Lookup(ctx, hashes)
	if err != nil {
		return nil, err
	}

	out := make(map[string]bool, len(records))
	for hash, r := range records {
		ok := c.Satisfied(r.StatusCode)
		out[hash] = ok

		metrics.HNRRecordsTotal.WithLabelValues(strconv.FormatBool(ok)).Inc()
	}

	return out, nil
}

type batchRecord struct {
	Record

	batch int
}

// Lookup fetches the records for hashes, keyed by normalized info-hash.
//
// Hashes are split into batches of the configured size. If the API returns
// more than one record for a hash, the last one in response order wins, and
// records from later batches override those from earlier batches.
// Any failed batch cancels the remaining ones and fails the lookup with a
// [*ConnectionError].
func (c *Client) Lookup(ctx context.Context, hashes []string) (map[string]Record, error) {
	ctx, span := tracer.Start(ctx, "hnr.Lookup", trace.WithAttributes(
		attribute.Int("hnr.torrents", len(hashes)),
		attribute.Int("hnr.batch_size", c.batchSize),
	))
	defer span.End()

	logger := log.WithContext(ctx)
	logger.InfoContext(ctx, "checking hnr status", slog.Int("torrents", len(hashes)))

	results := xsync.NewMapOf[string, batchRecord]()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	batches := 0
	for batch := range slices.Chunk(hashes, c.batchSize) {
		i := batches
		batches++

		g.Go(func() error {
			// Skip the request once another batch has failed.
			err := gctx.Err()
			if err != nil {
				return &ConnectionError{Batch: i, Size: len(batch), Err: err}
			}

			logger.DebugContext(gctx, "sending hnr batch", slog.Int("batch", i), slog.Int("size", len(batch)))

			records, err := c.lookupBatch(gctx, batch)
			if err != nil {
				return &ConnectionError{Batch: i, Size: len(batch), Err: err}
			}

			for _, r := range records {
				results.Compute(r.Hash, func(old batchRecord, loaded bool) (batchRecord, bool) {
					if loaded && old.batch > i {
						return old, false
					}

					return batchRecord{Record: r, batch: i}, false
				})
			}

			return nil
		})
	}

	span.SetAttributes(attribute.Int("hnr.batches", batches))

	err := g.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		logger.ErrorContext(ctx, "hnr lookup failed", slog.Any("err", err))

		return nil, err
	}

	out := make(map[string]Record, results.Size())
	results.Range(func(hash string, r batchRecord) bool {
		out[hash] = r.Record
		return true
	})

	logger.InfoContext(ctx, "hnr status received",
		slog.Int("batches", batches),
		slog.Int("records", len(out)),
	)

	return out, nil
}

type lookupRequest struct {
	InfoHash []string `json:"info_hash"`
}

type lookupResponse struct {
	Data []struct {
		Torrent struct {
			InfoHash string `json:"info_hash"`
		} `json:"torrent"`
		Status struct {
			Code *int `json:"hnr_status_code"`
		} `json:"status"`
	} `json:"data"`
}

func (c *Client) lookupBatch(ctx context.Context, batch []string) ([]Record, error) {
	if c.limiter != nil {
		err := c.limiter.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("wait for rate limit: %w", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(lookupRequest{InfoHash: batch})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	metrics.HNRRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.HNRRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body.

	metrics.HNRRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // Best effort.
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var payload lookupResponse

	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	records := make([]Record, 0, len(payload.Data))
	for i, d := range payload.Data {
		hash := torrent.NormalizeHash(d.Torrent.InfoHash)
		if hash == "" {
			return nil, fmt.Errorf("decode response: record %d: %w", i, errMissingHash)
		}

		if d.Status.Code == nil {
			return nil, fmt.Errorf("decode response: record %d (%s): %w", i, hash, errMissingStatus)
		}

		records = append(records, Record{Hash: hash, StatusCode: *d.Status.Code})
	}

	return records, nil
}
