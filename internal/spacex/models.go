package spacex

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Outcome is the result of a launch. The API reports it as true, false or
// null; null and absent both decode to OutcomeUnknown.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Label is the short human form used in tables and CSV.
func (o Outcome) Label() string {
	switch o {
	case OutcomeSuccess:
		return "Success"
	case OutcomeFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// UnmarshalJSON accepts true, false and null.
func (o *Outcome) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "true":
		*o = OutcomeSuccess
	case "false":
		*o = OutcomeFailure
	case "null":
		*o = OutcomeUnknown
	default:
		return fmt.Errorf("outcome must be true, false or null, got %s", b)
	}
	return nil
}

// MarshalJSON writes the wire form back out.
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch o {
	case OutcomeSuccess:
		return []byte("true"), nil
	case OutcomeFailure:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// MarshalYAML mirrors MarshalJSON for YAML exports.
func (o Outcome) MarshalYAML() (any, error) {
	switch o {
	case OutcomeSuccess:
		return true, nil
	case OutcomeFailure:
		return false, nil
	default:
		return nil, nil
	}
}

// Launch is one entry of the launches endpoints.
type Launch struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DateUTC      time.Time `json:"date_utc"`
	DateUnix     int64     `json:"date_unix"`
	FlightNumber int       `json:"flight_number"`
	Upcoming     bool      `json:"upcoming"`
	Success      Outcome   `json:"success"`
	RocketID     string    `json:"rocket,omitempty"`
	LaunchpadID  string    `json:"launchpad,omitempty"`
	Details      string    `json:"details,omitempty"`
}

// Rocket is one entry of the rockets endpoint.
type Rocket struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Active         bool   `json:"active"`
	Stages         int    `json:"stages"`
	Boosters       int    `json:"boosters"`
	SuccessRatePct int    `json:"success_rate_pct"`
	FirstFlight    string `json:"first_flight"`
	Description    string `json:"description,omitempty"`
}

// Launchpad is one entry of the launchpads endpoint.
type Launchpad struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	FullName        string  `json:"full_name"`
	Locality        string  `json:"locality"`
	Region          string  `json:"region"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	LaunchAttempts  int     `json:"launch_attempts"`
	LaunchSuccesses int     `json:"launch_successes"`
	Status          string  `json:"status"`
}

// wire types use pointers so that absent required fields can be told apart
// from zero values.

type launchWire struct {
	ID           *string `json:"id"`
	Name         *string `json:"name"`
	DateUTC      *string `json:"date_utc"`
	DateUnix     *int64  `json:"date_unix"`
	FlightNumber *int    `json:"flight_number"`
	Upcoming     *bool   `json:"upcoming"`
	Success      Outcome `json:"success"`
	Rocket       *string `json:"rocket"`
	Launchpad    *string `json:"launchpad"`
	Details      *string `json:"details"`
}

func (w launchWire) model() (Launch, error) {
	switch {
	case w.ID == nil:
		return Launch{}, missing("id")
	case w.Name == nil:
		return Launch{}, missing("name")
	case w.DateUTC == nil:
		return Launch{}, missing("date_utc")
	case w.DateUnix == nil:
		return Launch{}, missing("date_unix")
	case w.FlightNumber == nil:
		return Launch{}, missing("flight_number")
	case w.Upcoming == nil:
		return Launch{}, missing("upcoming")
	}
	date, err := time.Parse(time.RFC3339, *w.DateUTC)
	if err != nil {
		return Launch{}, &fieldError{Field: "date_utc", Err: err}
	}
	return Launch{
		ID:           *w.ID,
		Name:         *w.Name,
		DateUTC:      date.UTC(),
		DateUnix:     *w.DateUnix,
		FlightNumber: *w.FlightNumber,
		Upcoming:     *w.Upcoming,
		Success:      w.Success,
		RocketID:     deref(w.Rocket),
		LaunchpadID:  deref(w.Launchpad),
		Details:      strings.TrimSpace(deref(w.Details)),
	}, nil
}

type rocketWire struct {
	ID             *string `json:"id"`
	Name           *string `json:"name"`
	Type           *string `json:"type"`
	Active         *bool   `json:"active"`
	Stages         *int    `json:"stages"`
	Boosters       *int    `json:"boosters"`
	SuccessRatePct *int    `json:"success_rate_pct"`
	FirstFlight    *string `json:"first_flight"`
	Description    *string `json:"description"`
}

func (w rocketWire) model() (Rocket, error) {
	switch {
	case w.ID == nil:
		return Rocket{}, missing("id")
	case w.Name == nil:
		return Rocket{}, missing("name")
	case w.Type == nil:
		return Rocket{}, missing("type")
	case w.Active == nil:
		return Rocket{}, missing("active")
	case w.Stages == nil:
		return Rocket{}, missing("stages")
	case w.Boosters == nil:
		return Rocket{}, missing("boosters")
	case w.SuccessRatePct == nil:
		return Rocket{}, missing("success_rate_pct")
	case w.FirstFlight == nil:
		return Rocket{}, missing("first_flight")
	}
	return Rocket{
		ID:             *w.ID,
		Name:           *w.Name,
		Type:           *w.Type,
		Active:         *w.Active,
		Stages:         *w.Stages,
		Boosters:       *w.Boosters,
		SuccessRatePct: *w.SuccessRatePct,
		FirstFlight:    *w.FirstFlight,
		Description:    deref(w.Description),
	}, nil
}

type launchpadWire struct {
	ID              *string  `json:"id"`
	Name            *string  `json:"name"`
	FullName        *string  `json:"full_name"`
	Locality        *string  `json:"locality"`
	Region          *string  `json:"region"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	LaunchAttempts  *int     `json:"launch_attempts"`
	LaunchSuccesses *int     `json:"launch_successes"`
	Status          *string  `json:"status"`
}

func (w launchpadWire) model() (Launchpad, error) {
	switch {
	case w.ID == nil:
		return Launchpad{}, missing("id")
	case w.Name == nil:
		return Launchpad{}, missing("name")
	case w.FullName == nil:
		return Launchpad{}, missing("full_name")
	case w.Locality == nil:
		return Launchpad{}, missing("locality")
	case w.Region == nil:
		return Launchpad{}, missing("region")
	case w.Latitude == nil:
		return Launchpad{}, missing("latitude")
	case w.Longitude == nil:
		return Launchpad{}, missing("longitude")
	case w.LaunchAttempts == nil:
		return Launchpad{}, missing("launch_attempts")
	case w.LaunchSuccesses == nil:
		return Launchpad{}, missing("launch_successes")
	case w.Status == nil:
		return Launchpad{}, missing("status")
	}
	return Launchpad{
		ID:              *w.ID,
		Name:            *w.Name,
		FullName:        *w.FullName,
		Locality:        *w.Locality,
		Region:          *w.Region,
		Latitude:        *w.Latitude,
		Longitude:       *w.Longitude,
		LaunchAttempts:  *w.LaunchAttempts,
		LaunchSuccesses: *w.LaunchSuccesses,
		Status:          *w.Status,
	}, nil
}

type wire[T any] interface {
	model() (T, error)
}

// DecodeLaunches validates a launches payload.
func DecodeLaunches(endpoint string, raw json.RawMessage) ([]Launch, error) {
	return decodeList[launchWire, Launch](endpoint, raw)
}

// DecodeRockets validates a rockets payload.
func DecodeRockets(endpoint string, raw json.RawMessage) ([]Rocket, error) {
	return decodeList[rocketWire, Rocket](endpoint, raw)
}

// DecodeLaunchpads validates a launchpads payload.
func DecodeLaunchpads(endpoint string, raw json.RawMessage) ([]Launchpad, error) {
	return decodeList[launchpadWire, Launchpad](endpoint, raw)
}

func decodeList[W wire[T], T any](endpoint string, raw json.RawMessage) ([]T, error) {
	var items []W
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, decodeErr(endpoint, -1, err)
	}
	out := make([]T, 0, len(items))
	for i, w := range items {
		m, err := w.model()
		if err != nil {
			return nil, decodeErr(endpoint, i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func decodeOne[W wire[T], T any](endpoint string, raw json.RawMessage) (T, error) {
	var w W
	if err := json.Unmarshal(raw, &w); err != nil {
		var zero T
		return zero, decodeErr(endpoint, -1, err)
	}
	m, err := w.model()
	if err != nil {
		return m, decodeErr(endpoint, -1, err)
	}
	return m, nil
}

func decodeErr(endpoint string, index int, err error) *DecodeError {
	de := &DecodeError{Endpoint: endpoint, Index: index, Err: err}
	var fe *fieldError
	if errors.As(err, &fe) {
		de.Field = fe.Field
		de.Err = fe.Err
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && de.Field == "" {
		de.Field = ute.Field
	}
	return de
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
