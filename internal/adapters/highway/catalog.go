package highway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"transitsync/internal/services/ingest/domain"

	perr "transitsync/internal/platform/errors"
)

// ListStations fetches the catalog and flattens every group/channel pair into
// one station. Groups without channels contribute nothing
func (c *Client) ListStations(ctx context.Context) ([]domain.Station, error) {
	status, raw, err := c.do(ctx, http.MethodGet, "/catalog", sessionRequest{SessionID: c.currentSession()})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeTransient, "catalog fetch")
	}
	c.recordStatus(status)
	if status != http.StatusOK {
		return nil, perr.Transientf("catalog fetch failed (status %d)", status)
	}

	var env catalogEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Result == nil {
		return nil, perr.Protocolf("catalog response not understood")
	}

	var stations []domain.Station
	for _, rawGroup := range *env.Result {
		var group catalogGroup
		if err := json.Unmarshal(rawGroup, &group); err != nil {
			return nil, perr.Protocolf("catalog group not understood")
		}

		var groupFields map[string]any
		if err := json.Unmarshal(rawGroup, &groupFields); err != nil {
			return nil, perr.Protocolf("catalog group not understood")
		}
		delete(groupFields, "channels")

		for _, rawChannel := range group.Channels {
			var ch catalogChannel
			if err := json.Unmarshal(rawChannel, &ch); err != nil {
				return nil, perr.Protocolf("catalog channel not understood")
			}
			var chFields map[string]any
			if err := json.Unmarshal(rawChannel, &chFields); err != nil {
				return nil, perr.Protocolf("catalog channel not understood")
			}

			meta, err := json.Marshal(map[string]any{
				"group":   groupFields,
				"channel": chFields,
			})
			if err != nil {
				return nil, perr.Protocolf("catalog metadata not serializable")
			}

			stations = append(stations, domain.Station{
				Code:     fmt.Sprintf("%d:%d", group.ID, ch.ID),
				Name:     fmt.Sprintf("%s (%s)", group.Description, laneText(ch.Lane, ch.Orientation)),
				GeoPoint: fmt.Sprintf("%v,%v", group.Latitude, group.Longitude),
				Metadata: string(meta),
			})
		}
	}

	c.log.Debug().Int("stations", len(stations)).Msg("catalog fetched")
	return stations, nil
}

// CountryCodes fetches the nationality id to short-code table
func (c *Client) CountryCodes(ctx context.Context) (map[int64]string, error) {
	status, raw, err := c.do(ctx, http.MethodGet, "/codes", sessionRequest{SessionID: c.currentSession()})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeTransient, "country codes fetch")
	}
	c.recordStatus(status)
	if status != http.StatusOK {
		return nil, perr.Transientf("country codes fetch failed (status %d)", status)
	}

	var env codesEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Result == nil {
		return nil, perr.Protocolf("country codes response not understood")
	}

	codes := make(map[int64]string, len(*env.Result))
	for _, cc := range *env.Result {
		codes[cc.ID] = cc.Code
	}
	return codes, nil
}

// laneText renders the vendor's numeric lane and orientation codes as the
// display text appended to station names. Unknown codes degrade to "n/a"
// rather than failing the catalog sync
func laneText(lane, orientation int) string {
	var laneDesc string
	switch lane {
	case 1:
		laneDesc = "driving lane north"
	case 2:
		laneDesc = "passing lane north"
	case 3:
		laneDesc = "driving lane south"
	case 4:
		laneDesc = "passing lane south"
	case 5:
		laneDesc = "emergency lane north"
	case 6:
		laneDesc = "emergency lane south"
	default:
		laneDesc = "n/a"
	}

	var orientDesc string
	switch orientation {
	case 1:
		orientDesc = "south"
	case 2:
		orientDesc = "north"
	case 3:
		orientDesc = "both"
	case 4:
		orientDesc = "undefined"
	default:
		orientDesc = "n/a"
	}

	return fmt.Sprintf("lane: %s, direction: %s", laneDesc, orientDesc)
}
