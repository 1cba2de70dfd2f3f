package highway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"transitsync/internal/services/ingest/domain"

	perr "transitsync/internal/platform/errors"
)

// FetchEvents retrieves transit events for every group the given stations
// span, bounded by [from, to] in Unix seconds. groupFrom replaces the shared
// lower bound for the groups it names, which lets the follower resume each
// group at its own watermark.
//
// Failure handling is per group: a 401 renews the session and retries with a
// linearly growing backoff up to the attempt ceiling, any other non-200
// abandons the group for this call, and a response body that cannot be parsed
// aborts the whole call. Every response status lands in the tally
func (c *Client) FetchEvents(ctx context.Context, stations []domain.Station, from, to int64, groupFrom map[string]int64) ([]domain.TransitEvent, error) {
	groups, err := groupIDs(stations)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	toTok := upperBoundToken(to)

	var events []domain.TransitEvent
	for _, gid := range groups {
		lower := from
		if v, ok := groupFrom[gid]; ok {
			lower = v
		}

		recs, err := c.fetchGroup(ctx, gid, lowerBoundToken(lower), toTok)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			ev, err := eventFromRecord(rec)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}

		c.sleep(groupPause)
	}

	c.log.Debug().
		Int("groups", len(groups)).
		Int("events", len(events)).
		Int64("from", from).
		Int64("to", to).
		Msg("events fetched")
	return events, nil
}

// fetchGroup runs the retry loop for one group. A nil slice with a nil error
// means the group was abandoned (server error or renewal ceiling reached)
func (c *Client) fetchGroup(ctx context.Context, gid, fromTok, toTok string) ([]eventRecord, error) {
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body := eventsRequest{Request: eventsQuery{
			SessionID: c.currentSession(),
			GroupID:   gid,
			From:      fromTok,
			To:        toTok,
		}}

		status, raw, err := c.do(ctx, http.MethodGet, "/events", body)
		if err != nil {
			c.log.Error().Err(err).Str("group", gid).Msg("event fetch transport failure, abandoning group")
			return nil, nil
		}
		c.recordStatus(status)

		switch {
		case status == http.StatusUnauthorized:
			if err := c.renew(ctx, body.Request.SessionID); err != nil {
				c.log.Error().Err(err).Str("group", gid).Msg("session renewal failed")
			}
			c.sleep(retryStep * time.Duration(attempt))
			continue

		case status != http.StatusOK:
			// the service answers 500 for groups with no data in the
			// window, so this is routine rather than alarming
			c.log.Debug().Int("status", status).Str("group", gid).Msg("group not available in window, skipping")
			return nil, nil
		}

		var env eventsEnvelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Result == nil {
			return nil, perr.Protocolf("event response for group %s not understood", gid)
		}
		return *env.Result, nil
	}

	c.log.Error().Str("group", gid).Int("attempts", maxFetchAttempts).Msg("session renewal ceiling reached, abandoning group")
	return nil, nil
}

func eventFromRecord(rec eventRecord) (domain.TransitEvent, error) {
	ts, err := epochFromToken(rec.Timestamp)
	if err != nil {
		return domain.TransitEvent{}, err
	}

	ev := domain.TransitEvent{
		StationCode:    fmt.Sprintf("%d:%d", rec.GroupID, rec.ChannelID),
		Timestamp:      ts,
		Distance:       rec.Distance,
		Headway:        rec.Headway,
		Length:         rec.Length,
		AxleCount:      rec.AxleCount,
		AgainstTraffic: rec.AgainstTraffic,
		VehicleClass:   rec.VehicleClass,
		Speed:          rec.Speed,
		Direction:      rec.Direction,
		CountryID:      rec.Nationality,
	}
	if rec.PlatePrefix != "" {
		p := rec.PlatePrefix
		ev.PlatePrefix = &p
	}
	return ev, nil
}

// groupIDs extracts the distinct group ids the stations span, sorted so the
// per-group request order is stable
func groupIDs(stations []domain.Station) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, st := range stations {
		gid, ok := domain.GroupOf(st.Code)
		if !ok {
			return nil, perr.InvalidArgf("station code %q does not have the group:channel shape", st.Code)
		}
		if !seen[gid] {
			seen[gid] = true
			out = append(out, gid)
		}
	}
	sort.Strings(out)
	return out, nil
}
