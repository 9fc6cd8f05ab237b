// Package triangle is a client of the retailer's product API, it lists the
// product inventory and fetches sku prices.
package triangle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"canadiantracker/internal/components/chrono"
	"canadiantracker/internal/components/telemetry"
	"canadiantracker/internal/ingest"
	"canadiantracker/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

const (
	report_client_categories = "client.categories"
	report_client_list_page  = "client.list-page"
	report_client_prices     = "client.prices"
	report_client_listed     = "client.listed-products"

	DefaultBaseURL = "https://apim.canadiantire.ca"
	// the price endpoint refuses more skus per request
	MaxPriceBatchSize = 50
	pageSize          = 48
)

// ErrNoSuchProduct is returned by ListSkus when the retailer does not know the product.
var ErrNoSuchProduct = ingest.ErrNoSuchProduct

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/102.0.0.0 Safari/537.36"

// Config is the `triangle` section of the configuration file.
type Config struct {
	BaseURL           string  `json:"base_url"`
	StoreID           string  `json:"store_id"`
	SubscriptionKey   string  `json:"subscription_key"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	PriceBatchSize    int     `json:"price_batch_size"`
	// Retries is the number of attempts of a request, the first included.
	Retries          int     `json:"retries"`
	RetryWaitSeconds float64 `json:"retry_wait_seconds"`
	Timeout          float64 `json:"timeout_seconds"`
	// DumpDir, when set, receives a dump of every exchange (debug logging only).
	DumpDir string `json:"dump_dir"`

	DisableBypass  bool `json:"disable_bypass"`
	FixedUserAgent bool `json:"fixed_user_agent"`
}

// WithDefaults fills the unset fields of `cfg`.
func (cfg Config) WithDefaults() Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.StoreID == "" {
		cfg.StoreID = "64"
	}
	if cfg.SubscriptionKey == "" {
		cfg.SubscriptionKey = "c01ef3612328420c9f5cd9277e815a0e"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.PriceBatchSize <= 0 || cfg.PriceBatchSize > MaxPriceBatchSize {
		cfg.PriceBatchSize = MaxPriceBatchSize
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 5
	}
	if cfg.RetryWaitSeconds <= 0 {
		cfg.RetryWaitSeconds = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30
	}
	return cfg
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

type Client struct {
	http           *resty.Client
	storeID        string
	priceBatchSize int
	randomAgent    bool
	levels         []int
	maxPages       int
	clock          chrono.API
	tel            telemetry.API
}

type config struct {
	levels   []int
	maxPages int
	clock    chrono.API
	tel      telemetry.API
}

type Option func(cfg *config)

func WithTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *config) {
		cfg.tel = tel
	}
}

func WithClock(clock chrono.API) Option {
	return func(cfg *config) {
		cfg.clock = clock
	}
}

// WithCategoryLevels sets the category levels crawled by ListProducts,
// by default a single level is picked from the day of the month.
func WithCategoryLevels(levels ...int) Option {
	return func(cfg *config) {
		cfg.levels = levels
	}
}

// WithMaxPages stops the listing of a category after `n` pages, 0 means no limit.
func WithMaxPages(n int) Option {
	return func(cfg *config) {
		cfg.maxPages = n
	}
}

func NewClient(cfg Config, options ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()

	c := config{tel: telemetry.SlogAPI{}}
	for _, opt := range options {
		opt(&c)
	}
	if c.clock == nil {
		clock, err := chrono.NewStandardImpl()
		if err != nil {
			return nil, err
		}
		c.clock = clock
	}
	tel := telemetry.NewScopedAPI("triangle", c.tel)

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/"))
	httpClient.SetTimeout(seconds(cfg.Timeout))
	if !cfg.DisableBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeaders(map[string]string{
		"accept":                    "application/json, text/plain, */*",
		"accept-language":           "en-US,en;q=0.9",
		"bannerid":                  "CTR",
		"basesiteid":                "CTR",
		"ocp-apim-subscription-key": cfg.SubscriptionKey,
		"origin":                    "https://www.canadiantire.ca",
		"referer":                   "https://www.canadiantire.ca/",
		"service-client":            "ctr/web",
		"service-version":           "ctc-dev2",
		"user-agent":                defaultUserAgent,
		"x-web-host":                "www.canadiantire.ca",
		"cache-control":             "no-cache",
		"pragma":                    "no-cache",
	})

	httpClient.SetRetryCount(cfg.Retries - 1)
	httpClient.SetRetryWaitTime(seconds(cfg.RetryWaitSeconds))
	httpClient.SetRetryMaxWaitTime(seconds(cfg.RetryWaitSeconds))
	httpClient.AddRetryCondition(shouldRetry)

	burst := int(math.Max(1, math.Ceil(cfg.RequestsPerSecond)))
	rateLimiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	var output restyutil.InstrumentOutput
	if cfg.DumpDir != "" {
		fsOutput, err := restyutil.NewFilesystemOutput(cfg.DumpDir)
		if err != nil {
			return nil, err
		}
		output = fsOutput
	}
	restyutil.InstrumentClient(httpClient, otel.Tracer("scrapers/triangle/http"), output)
	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		http:           httpClient,
		storeID:        cfg.StoreID,
		priceBatchSize: cfg.PriceBatchSize,
		randomAgent:    !cfg.FixedUserAgent,
		levels:         c.levels,
		maxPages:       c.maxPages,
		clock:          c.clock,
		tel:            tel,
	}, nil
}

// requestError is a non-2xx response.
type requestError struct {
	status int
	body   string
}

func (e *requestError) Error() string {
	body := e.body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("status %d: %s", e.status, body)
}

// the price endpoint wraps the 404 of a retired sku in a 5xx
const upstreamNotFound = "Request failed with status code 404"

// permanent reports whether retrying the response cannot help.
func permanent(status int, body string) bool {
	return status == http.StatusBadRequest ||
		status == http.StatusNotFound ||
		strings.Contains(body, upstreamNotFound)
}

func shouldRetry(res *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if res == nil || !res.IsError() {
		return false
	}
	return !permanent(res.StatusCode(), res.String())
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if c.randomAgent {
		req.SetHeader("user-agent", browser.Random())
	}
	return req
}

// get fetches `endpoint` and decodes its JSON body into `out`.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	res, err := c.request(ctx).
		SetResult(out).
		Get(endpoint)
	if err != nil {
		return err
	}
	if res.IsError() {
		return &requestError{status: res.StatusCode(), body: res.String()}
	}
	return nil
}
