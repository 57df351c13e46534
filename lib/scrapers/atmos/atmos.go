package atmos

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"atmosenergy/lib/chrono"
	"atmosenergy/lib/restyutil"
	"atmosenergy/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const defaultBaseUrl = "https://www.atmosenergy.com"

const (
	loginFormPath    = "/accountcenter/logon/login.html"
	authenticatePath = "/accountcenter/logon/authenticate.html"
	logoutPath       = "/accountcenter/logout/index.html"
	dailyUsagePath   = "/accountcenter/usagehistory/dailyUsageDownload.html"
)

// downloadContentType is what the portal serves for a real usage workbook;
// anything else (usually an HTML error or login page) is a failed download.
const downloadContentType = "application/vnd.ms-excel"

const formIdSelector = "input#authenticate_formId"

var (
	ErrLoginFormId           = fmt.Errorf("could not find login form id")
	ErrLoginFailed           = fmt.Errorf("login failed, please check your credentials")
	ErrUnexpectedContentType = fmt.Errorf("unexpected content type")
	ErrWorkbookDecode        = fmt.Errorf("unable to open workbook")
)

// Client scrapes the Atmos Energy Account Center. One client owns one
// cookie-bearing session: Login establishes it, every later call rides on
// it, Logout tears it down. Not safe for concurrent use.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	clock    chrono.API
	username string
	password string
}

type ClientOptions struct {
	// BaseUrl defaults to the production portal; tests point it at a stub
	// server.
	BaseUrl  string
	Username string
	Password string
	// Clock defaults to the standard implementation.
	Clock chrono.API
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	base := opts.BaseUrl
	if base == "" {
		base = defaultBaseUrl
	}
	baseUrl, err := url.Parse(base)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(base)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	// 2 requests max per second
	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(2, 2)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, "scrapers/atmos/http")
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	clock := opts.Clock
	if clock == nil {
		clock = chrono.NewStandardImpl()
	}

	c := &Client{
		BaseUrl:  baseUrl,
		Http:     client,
		clock:    clock,
		username: opts.Username,
		password: opts.Password,
	}
	return c, nil
}

func checkStatus(res *resty.Response) error {
	if res.IsError() {
		return fmt.Errorf("http request failed: %s", res.Status())
	}
	return nil
}

// finalPath is where the portal left us after redirects; it is how login
// success and failure are told apart.
func finalPath(res *resty.Response) string {
	raw := res.RawResponse
	if raw == nil || raw.Request == nil || raw.Request.URL == nil {
		return ""
	}
	return raw.Request.URL.Path
}

// Login fetches the login form, extracts the one-time form id the portal
// embeds in it, and posts it back with the credentials. The portal signals
// rejection by landing back on the login flow instead of the account
// landing screen.
func (c *Client) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(loginFormPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login form")
		return err
	}
	if err := checkStatus(res); err != nil {
		span.SetStatus(codes.Error, "login form request rejected")
		return err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login form html")
		return err
	}

	formId := doc.Find(formIdSelector)
	if len(formId.Nodes) == 0 {
		span.SetStatus(codes.Error, ErrLoginFormId.Error())
		return ErrLoginFormId
	}
	slog.DebugContext(ctx, "got login form id", "form_id", formId.AttrOr("value", ""))

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": c.username,
			"password": c.password,
			"formId":   formId.AttrOr("value", ""),
		}).
		Post(authenticatePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}
	if err := checkStatus(res); err != nil {
		span.SetStatus(codes.Error, "authenticate request rejected")
		return err
	}

	switch finalPath(res) {
	case authenticatePath, loginFormPath:
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		return ErrLoginFailed
	}
	return nil
}

// Logout ends the remote session. The local session resources are released
// no matter what the request does, so Logout is always safe to defer.
func (c *Client) Logout(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Logout")
	defer span.End()

	defer c.Http.GetClient().CloseIdleConnections()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(logoutPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make logout request")
		return err
	}
	return checkStatus(res)
}

// GetCurrentUsage downloads and decodes the unbilled billing period.
func (c *Client) GetCurrentUsage(ctx context.Context) ([]Reading, error) {
	ctx, span := tracer.Start(ctx, "client:GetCurrentUsage")
	defer span.End()

	usage, err := c.downloadPeriod(ctx, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download current usage")
		return nil, err
	}
	return usage, nil
}

// GetUsageHistory downloads the given number of billing periods, nearest
// first, and returns their readings concatenated in request order. Each
// period's rows stay in spreadsheet order; no global re-sort happens, so
// the result is not chronologically sorted for months > 1. The first
// failing period aborts the whole call.
func (c *Client) GetUsageHistory(ctx context.Context, months int) ([]Reading, error) {
	ctx, span := tracer.Start(ctx, "client:GetUsageHistory")
	defer span.End()

	if months < 1 {
		return nil, fmt.Errorf("months must be positive, got %d", months)
	}

	var all []Reading
	for offset := 0; offset < months; offset++ {
		usage, err := c.downloadPeriod(ctx, offset)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to download usage history")
			return nil, err
		}
		all = append(all, usage...)
	}
	return all, nil
}

func (c *Client) downloadPeriod(ctx context.Context, monthsAgo int) ([]Reading, error) {
	period := BillingPeriod(c.clock.Now(), monthsAgo)
	link := DownloadURL(period, c.clock.Now())
	slog.DebugContext(ctx, "downloading usage", "billing_period", period)

	res, err := c.Http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(res); err != nil {
		return nil, err
	}

	contentType := res.Header().Get("Content-Type")
	if !strings.Contains(contentType, downloadContentType) {
		return nil, fmt.Errorf(
			"%w: got %q, expected %q",
			ErrUnexpectedContentType, contentType, downloadContentType,
		)
	}

	return DecodeUsageWorkbook(res.Body(), c.clock.Location())
}
