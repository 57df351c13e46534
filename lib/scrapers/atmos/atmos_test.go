package atmos

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"atmosenergy/lib/chrono"
	"atmosenergy/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "john"
	testPassword = "secret123"
	testFormId   = "f81d4fae-7dec"
)

// stubPortal is a minimal stand-in for the account center: a login form
// with a one-time form id, an authenticate endpoint that redirects to the
// landing screen on success and stays put on failure, and the usage
// download endpoint.
type stubPortal struct {
	t *testing.T

	// when true the login form is served without the form id element,
	// mimicking a portal layout change
	omitFormId bool
	// overrides the download response body/content type when set
	downloadBody        []byte
	downloadContentType string
	// fails the nth download (1-based) with an HTML page when > 0
	failDownload int

	downloads int
	periods   []string
}

func (p *stubPortal) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+loginFormPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if p.omitFormId {
			w.Write([]byte(`<html><body><form></form></body></html>`))
			return
		}
		w.Write([]byte(`<html><body><form>
			<input type="hidden" id="authenticate_formId" name="formId" value="` + testFormId + `"/>
		</form></body></html>`))
	})

	mux.HandleFunc("POST "+authenticatePath, func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		require.NoError(p.t, err)

		ok := r.PostFormValue("username") == testUsername &&
			r.PostFormValue("password") == testPassword &&
			r.PostFormValue("formId") == testFormId
		if !ok {
			// rejected credentials leave the client on the login flow
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body>invalid credentials</body></html>`))
			return
		}
		http.Redirect(w, r, "/accountcenter/landing/landingScreen.html", http.StatusFound)
	})

	mux.HandleFunc("GET /accountcenter/landing/landingScreen.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>welcome</body></html>`))
	})

	mux.HandleFunc("GET "+logoutPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>goodbye</body></html>`))
	})

	mux.HandleFunc("GET "+dailyUsagePath, func(w http.ResponseWriter, r *http.Request) {
		p.downloads++
		p.periods = append(p.periods, r.URL.Query().Get("billingPeriod"))

		if p.failDownload > 0 && p.downloads == p.failDownload {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body>session expired</body></html>`))
			return
		}

		contentType := p.downloadContentType
		if contentType == "" {
			contentType = downloadContentType
		}
		body := p.downloadBody
		if body == nil {
			body = loadFixture(p.t)
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(body)
	})

	return mux
}

func setupClient(t *testing.T, portal *stubPortal) *Client {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/atmos")
	t.Cleanup(cleanup)

	portal.t = t
	server := httptest.NewServer(portal.handler())
	t.Cleanup(server.Close)

	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}

	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl:  server.URL,
		Username: testUsername,
		Password: testPassword,
		Clock:    chrono.NewFixedImpl(time.Date(2025, time.December, 10, 15, 30, 45, 0, loc)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestLogin(t *testing.T) {
	client := setupClient(t, &stubPortal{})
	err := client.Login(context.Background())
	require.NoError(t, err)
}

func TestLoginMissingFormId(t *testing.T) {
	client := setupClient(t, &stubPortal{omitFormId: true})
	err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrLoginFormId)
}

func TestLoginBadCredentials(t *testing.T) {
	client := setupClient(t, &stubPortal{})
	client.password = "wrong"
	err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrLoginFailed)
}

func TestLogout(t *testing.T) {
	client := setupClient(t, &stubPortal{})
	err := client.Login(context.Background())
	require.NoError(t, err)
	err = client.Logout(context.Background())
	require.NoError(t, err)
}

func TestGetCurrentUsage(t *testing.T) {
	portal := &stubPortal{}
	client := setupClient(t, portal)

	usage, err := client.GetCurrentUsage(context.Background())
	require.NoError(t, err)
	require.Len(t, usage, 29)
	require.Equal(t, 1, portal.downloads)
	require.Equal(t, []string{"Current"}, portal.periods)

	if diff := cmp.Diff(fixtureReadings(client.clock.Location()), usage, timeComparer); diff != "" {
		t.Fatalf("usage mismatch (-want +got):\n%s", diff)
	}
}

func TestGetCurrentUsageUnexpectedContentType(t *testing.T) {
	portal := &stubPortal{
		downloadBody:        []byte(`<html><body>please log in</body></html>`),
		downloadContentType: "text/html",
	}
	client := setupClient(t, portal)

	usage, err := client.GetCurrentUsage(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedContentType)
	require.Empty(t, usage)
}

func TestGetCurrentUsageCorruptWorkbook(t *testing.T) {
	portal := &stubPortal{downloadBody: []byte("PK\x03\x04not a legacy workbook")}
	client := setupClient(t, portal)

	usage, err := client.GetCurrentUsage(context.Background())
	require.ErrorIs(t, err, ErrWorkbookDecode)
	require.Empty(t, usage)
}

func TestGetUsageHistory(t *testing.T) {
	portal := &stubPortal{}
	client := setupClient(t, portal)

	usage, err := client.GetUsageHistory(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 3, portal.downloads)
	// one request per period, nearest first
	require.Equal(t, []string{"Current", "November,2025", "October,2025"}, portal.periods)
	// concatenated in request order, not re-sorted
	require.Len(t, usage, 29*3)

	fixture := fixtureReadings(client.clock.Location())
	for period := 0; period < 3; period++ {
		if diff := cmp.Diff(fixture, usage[period*29:(period+1)*29], timeComparer); diff != "" {
			t.Fatalf("period %d mismatch (-want +got):\n%s", period, diff)
		}
	}
}

func TestGetUsageHistorySixMonths(t *testing.T) {
	portal := &stubPortal{}
	client := setupClient(t, portal)

	usage, err := client.GetUsageHistory(context.Background(), 6)
	require.NoError(t, err)
	require.Equal(t, 6, portal.downloads)
	require.Len(t, usage, 174)
}

func TestGetUsageHistoryAbortsOnFailure(t *testing.T) {
	portal := &stubPortal{failDownload: 2}
	client := setupClient(t, portal)

	usage, err := client.GetUsageHistory(context.Background(), 3)
	require.ErrorIs(t, err, ErrUnexpectedContentType)
	// earlier periods are discarded, not returned partially
	require.Empty(t, usage)
	require.Equal(t, 2, portal.downloads)
}

func TestGetUsageHistoryRejectsNonPositiveMonths(t *testing.T) {
	client := setupClient(t, &stubPortal{})
	_, err := client.GetUsageHistory(context.Background(), 0)
	require.Error(t, err)
}
