package highway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"transitsync/internal/services/ingest/domain"

	perr "transitsync/internal/platform/errors"
)

const baseURL = "https://transit.example"

func newTestClient(t *testing.T) *Client {
	t.Helper()

	c := NewClient(Options{
		BaseURL:  baseURL,
		Username: "operator",
		Password: "hunter2",
	})
	c.sleep = func(time.Duration) {}

	httpmock.ActivateNonDefault(c.http)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

// registerAuth responds to the handshake with tok-1, tok-2, ... on
// successive calls
func registerAuth() {
	calls := 0
	httpmock.RegisterResponder(http.MethodPost, baseURL+"/token",
		func(*http.Request) (*http.Response, error) {
			calls++
			body := fmt.Sprintf(`{"SubscribeResult":{"sessionId":"tok-%d"}}`, calls)
			return httpmock.NewStringResponse(http.StatusOK, body), nil
		})
}

func decodeEventsRequest(t *testing.T, req *http.Request) eventsQuery {
	t.Helper()
	var body eventsRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		t.Fatalf("decode events request: %v", err)
	}
	return body.Request
}

func stationsFor(codes ...string) []domain.Station {
	out := make([]domain.Station, len(codes))
	for i, c := range codes {
		out[i] = domain.Station{Code: c}
	}
	return out
}

const sampleEvent = `{
	"groupId": 1, "channelId": 2,
	"timestamp": "/Date(1540688390000+0200)/",
	"distance": 1.5, "headway": 2.25, "length": 4.2,
	"axleCount": 2, "againstTraffic": false,
	"vehicleClass": 3, "speed": 88.5, "direction": 1,
	"nationality": 7, "platePrefix": "AB"
}`

func TestOpenAndClose(t *testing.T) {
	c := newTestClient(t)
	registerAuth()
	httpmock.RegisterResponder(http.MethodDelete, baseURL+"/token/tok-1",
		httpmock.NewStringResponder(http.StatusOK, `{"RemoveSubscribeResult":true}`))

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := c.currentSession(); got != "tok-1" {
		t.Fatalf("session = %q, want tok-1", got)
	}

	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := c.currentSession(); got != "" {
		t.Fatalf("session survives Close: %q", got)
	}
}

func TestCloseWithoutSession(t *testing.T) {
	c := newTestClient(t)

	err := c.Close(context.Background())
	if err == nil {
		t.Fatalf("Close succeeded with no session")
	}
	if !perr.IsCode(err, perr.ErrorCodeAuth) {
		t.Fatalf("Close error code = %v, want auth", perr.CodeOf(err))
	}

	// releasing twice fails the second time for the same reason
	registerAuth()
	httpmock.RegisterResponder(http.MethodDelete, baseURL+"/token/tok-1",
		httpmock.NewStringResponder(http.StatusOK, `{"RemoveSubscribeResult":true}`))
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(context.Background()); err == nil {
		t.Fatalf("second Close succeeded")
	}
}

func TestOpenRefused(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost, baseURL+"/token",
		httpmock.NewStringResponder(http.StatusForbidden, `nope`))

	err := c.Open(context.Background())
	if err == nil {
		t.Fatalf("Open succeeded against refusal")
	}
	if !perr.IsCode(err, perr.ErrorCodeAuth) {
		t.Fatalf("Open error code = %v, want auth", perr.CodeOf(err))
	}
}

func TestListStations(t *testing.T) {
	c := newTestClient(t)
	registerAuth()
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/catalog",
		httpmock.NewStringResponder(http.StatusOK, `{"CatalogResult":[
			{"id": 12, "description": "A22 km 80", "latitude": 46.2, "longitude": 11.1,
			 "roadSegment": "A22-N",
			 "channels": [
				{"id": 1, "lane": 1, "orientation": 2, "sensorModel": "TLX-9"},
				{"id": 2, "lane": 99, "orientation": 99}
			 ]},
			{"id": 13, "description": "empty group", "latitude": 0, "longitude": 0, "channels": []}
		]}`))

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	stations, err := c.ListStations(context.Background())
	if err != nil {
		t.Fatalf("ListStations: %v", err)
	}

	if len(stations) != 2 {
		t.Fatalf("got %d stations, want 2 (empty group contributes none)", len(stations))
	}
	if stations[0].Code != "12:1" || stations[1].Code != "12:2" {
		t.Fatalf("codes = %q, %q", stations[0].Code, stations[1].Code)
	}
	if want := "A22 km 80 (lane: driving lane north, direction: north)"; stations[0].Name != want {
		t.Fatalf("name = %q, want %q", stations[0].Name, want)
	}
	// unknown vendor codes degrade instead of failing the sync
	if !strings.Contains(stations[1].Name, "n/a") {
		t.Fatalf("unknown lane not rendered as n/a: %q", stations[1].Name)
	}
	if stations[0].GeoPoint != "46.2,11.1" {
		t.Fatalf("geo = %q", stations[0].GeoPoint)
	}
	// leftover vendor fields survive into metadata
	if !strings.Contains(stations[0].Metadata, "roadSegment") || !strings.Contains(stations[0].Metadata, "sensorModel") {
		t.Fatalf("metadata lost vendor fields: %s", stations[0].Metadata)
	}
}

func TestCountryCodes(t *testing.T) {
	c := newTestClient(t)
	registerAuth()
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/codes",
		httpmock.NewStringResponder(http.StatusOK, `{"CountryCodesResult":[
			{"id": 7, "code": "D"}, {"id": 9, "code": "I"}
		]}`))

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	codes, err := c.CountryCodes(context.Background())
	if err != nil {
		t.Fatalf("CountryCodes: %v", err)
	}
	if codes[7] != "D" || codes[9] != "I" || len(codes) != 2 {
		t.Fatalf("codes = %v", codes)
	}
}

func TestFetchEventsSkipsFailedGroup(t *testing.T) {
	c := newTestClient(t)
	registerAuth()
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/events",
		func(req *http.Request) (*http.Response, error) {
			q := decodeEventsRequest(t, req)
			if q.GroupID == "2" {
				return httpmock.NewStringResponse(http.StatusInternalServerError, ``), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"EventsResult":[`+sampleEvent+`]}`), nil
		})

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	events, err := c.FetchEvents(context.Background(), stationsFor("1:2", "2:1"), 100, 200, nil)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (failed group skipped)", len(events))
	}
	ev := events[0]
	if ev.StationCode != "1:2" || ev.Timestamp != 1540688390 {
		t.Fatalf("event = %+v", ev)
	}
	if ev.CountryID == nil || *ev.CountryID != 7 {
		t.Fatalf("country id not carried: %+v", ev)
	}
	if ev.PlatePrefix == nil || *ev.PlatePrefix != "AB" {
		t.Fatalf("plate prefix not carried: %+v", ev)
	}

	tally := c.StatusTally()
	if tally[http.StatusOK] != 1 || tally[http.StatusInternalServerError] != 1 {
		t.Fatalf("tally = %v", tally)
	}
}

func TestFetchEventsRenewsSessionOn401(t *testing.T) {
	c := newTestClient(t)
	registerAuth()
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/events",
		func(req *http.Request) (*http.Response, error) {
			q := decodeEventsRequest(t, req)
			if q.SessionID == "tok-1" {
				return httpmock.NewStringResponse(http.StatusUnauthorized, ``), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"EventsResult":[`+sampleEvent+`]}`), nil
		})

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	events, err := c.FetchEvents(context.Background(), stationsFor("1:2"), 100, 200, nil)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 after renewal", len(events))
	}
	if got := c.currentSession(); got != "tok-2" {
		t.Fatalf("session = %q, want renewed tok-2", got)
	}
	tally := c.StatusTally()
	if tally[http.StatusUnauthorized] != 1 || tally[http.StatusOK] != 1 {
		t.Fatalf("tally = %v", tally)
	}
}

func TestFetchEventsRenewalCeiling(t *testing.T) {
	c := newTestClient(t)
	registerAuth()
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/events",
		httpmock.NewStringResponder(http.StatusUnauthorized, ``))

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	events, err := c.FetchEvents(context.Background(), stationsFor("1:2"), 100, 200, nil)
	if err != nil {
		t.Fatalf("FetchEvents: %v (exhaustion abandons the group, not the call)", err)
	}
	if events != nil {
		t.Fatalf("got events from an exhausted group: %v", events)
	}
	if tally := c.StatusTally(); tally[http.StatusUnauthorized] != maxFetchAttempts {
		t.Fatalf("tally = %v, want %d unauthorized", tally, maxFetchAttempts)
	}
}

func TestFetchEventsParseFailureIsFatal(t *testing.T) {
	c := newTestClient(t)
	registerAuth()
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/events",
		httpmock.NewStringResponder(http.StatusOK, `<html>maintenance</html>`))

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err := c.FetchEvents(context.Background(), stationsFor("1:2"), 100, 200, nil)
	if err == nil {
		t.Fatalf("unparseable 200 accepted")
	}
	if !perr.IsCode(err, perr.ErrorCodeProtocol) {
		t.Fatalf("error code = %v, want protocol", perr.CodeOf(err))
	}
}

func TestFetchEventsPerGroupOverride(t *testing.T) {
	c := newTestClient(t)
	registerAuth()

	seen := map[string]string{}
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/events",
		func(req *http.Request) (*http.Response, error) {
			q := decodeEventsRequest(t, req)
			seen[q.GroupID] = q.From
			return httpmock.NewStringResponse(http.StatusOK, `{"EventsResult":[]}`), nil
		})

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err := c.FetchEvents(context.Background(), stationsFor("1:1", "2:1"), 100, 200,
		map[string]int64{"2": 150})
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}

	if seen["1"] != lowerBoundToken(100) {
		t.Fatalf("group 1 from = %q, want shared bound", seen["1"])
	}
	if seen["2"] != lowerBoundToken(150) {
		t.Fatalf("group 2 from = %q, want override", seen["2"])
	}
}

func TestFetchEventsNoStations(t *testing.T) {
	c := newTestClient(t)

	events, err := c.FetchEvents(context.Background(), nil, 100, 200, nil)
	if err != nil || events != nil {
		t.Fatalf("empty fetch = (%v, %v)", events, err)
	}
}

func TestFetchEventsMalformedStationCode(t *testing.T) {
	c := newTestClient(t)

	_, err := c.FetchEvents(context.Background(), stationsFor("oops"), 100, 200, nil)
	if err == nil {
		t.Fatalf("malformed station code accepted")
	}
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("error code = %v, want invalid argument", perr.CodeOf(err))
	}
}
