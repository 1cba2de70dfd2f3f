package highway

import "encoding/json"

// Wire envelopes for the operator's web service. Every call wraps its payload
// in a "<Operation>Result" member; a missing member means the response body is
// not what this client speaks and is treated as a protocol error

type authRequest struct {
	Request authCredentials `json:"request"`
}

type authCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authEnvelope struct {
	Result *authResult `json:"SubscribeResult"`
}

type authResult struct {
	SessionID string `json:"sessionId"`
}

type releaseEnvelope struct {
	Result *bool `json:"RemoveSubscribeResult"`
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

type catalogEnvelope struct {
	Result *[]json.RawMessage `json:"CatalogResult"`
}

// catalogGroup and catalogChannel carry only the fields the client extracts;
// each raw group/channel is decoded a second time into a generic map so the
// leftover vendor fields survive into the station metadata document
type catalogGroup struct {
	ID          int64             `json:"id"`
	Description string            `json:"description"`
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	Channels    []json.RawMessage `json:"channels"`
}

type catalogChannel struct {
	ID          int64 `json:"id"`
	Lane        int   `json:"lane"`
	Orientation int   `json:"orientation"`
}

type codesEnvelope struct {
	Result *[]countryCode `json:"CountryCodesResult"`
}

type countryCode struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

type eventsRequest struct {
	Request eventsQuery `json:"request"`
}

type eventsQuery struct {
	SessionID string `json:"sessionId"`
	GroupID   string `json:"groupId"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type eventsEnvelope struct {
	Result *[]eventRecord `json:"EventsResult"`
}

type eventRecord struct {
	GroupID        int64   `json:"groupId"`
	ChannelID      int64   `json:"channelId"`
	Timestamp      string  `json:"timestamp"`
	Distance       float64 `json:"distance"`
	Headway        float64 `json:"headway"`
	Length         float64 `json:"length"`
	AxleCount      int     `json:"axleCount"`
	AgainstTraffic bool    `json:"againstTraffic"`
	VehicleClass   int     `json:"vehicleClass"`
	Speed          float64 `json:"speed"`
	Direction      int     `json:"direction"`
	Nationality    *int64  `json:"nationality"`
	PlatePrefix    string  `json:"platePrefix"`
}
