package spacex

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/onnwee/spacex-launch-tracker/internal/metrics"
)

// Launches returns every launch.
func (c *Client) Launches(ctx context.Context, forceRefresh bool) ([]Launch, error) {
	return fetchList(ctx, c, EndpointLaunches, forceRefresh, DecodeLaunches)
}

// PastLaunches returns launches that have already flown.
func (c *Client) PastLaunches(ctx context.Context, forceRefresh bool) ([]Launch, error) {
	return fetchList(ctx, c, EndpointPastLaunches, forceRefresh, DecodeLaunches)
}

// UpcomingLaunches returns scheduled launches.
func (c *Client) UpcomingLaunches(ctx context.Context, forceRefresh bool) ([]Launch, error) {
	return fetchList(ctx, c, EndpointUpcomingLaunches, forceRefresh, DecodeLaunches)
}

// LaunchByID returns a single launch.
func (c *Client) LaunchByID(ctx context.Context, id string, forceRefresh bool) (Launch, error) {
	endpoint, err := byID(EndpointLaunches, id)
	if err != nil {
		return Launch{}, err
	}
	return fetchOne(ctx, c, endpoint, forceRefresh, decodeOne[launchWire, Launch])
}

// Rockets returns every rocket.
func (c *Client) Rockets(ctx context.Context, forceRefresh bool) ([]Rocket, error) {
	return fetchList(ctx, c, EndpointRockets, forceRefresh, DecodeRockets)
}

// RocketByID returns a single rocket.
func (c *Client) RocketByID(ctx context.Context, id string, forceRefresh bool) (Rocket, error) {
	endpoint, err := byID(EndpointRockets, id)
	if err != nil {
		return Rocket{}, err
	}
	return fetchOne(ctx, c, endpoint, forceRefresh, decodeOne[rocketWire, Rocket])
}

// Launchpads returns every launchpad.
func (c *Client) Launchpads(ctx context.Context, forceRefresh bool) ([]Launchpad, error) {
	return fetchList(ctx, c, EndpointLaunchpads, forceRefresh, DecodeLaunchpads)
}

// LaunchpadByID returns a single launchpad.
func (c *Client) LaunchpadByID(ctx context.Context, id string, forceRefresh bool) (Launchpad, error) {
	endpoint, err := byID(EndpointLaunchpads, id)
	if err != nil {
		return Launchpad{}, err
	}
	return fetchOne(ctx, c, endpoint, forceRefresh, decodeOne[launchpadWire, Launchpad])
}

func fetchList[T any](ctx context.Context, c *Client, endpoint string, forceRefresh bool, decode func(string, json.RawMessage) ([]T, error)) ([]T, error) {
	raw, err := c.Fetch(ctx, endpoint, forceRefresh)
	if err != nil {
		return nil, err
	}
	out, err := decode(endpoint, raw)
	if err != nil {
		c.rejectPayload(ctx, endpoint, err)
		return nil, err
	}
	return out, nil
}

func fetchOne[T any](ctx context.Context, c *Client, endpoint string, forceRefresh bool, decode func(string, json.RawMessage) (T, error)) (T, error) {
	raw, err := c.Fetch(ctx, endpoint, forceRefresh)
	if err != nil {
		var zero T
		return zero, err
	}
	out, err := decode(endpoint, raw)
	if err != nil {
		c.rejectPayload(ctx, endpoint, err)
		return out, err
	}
	return out, nil
}

// rejectPayload drops a cached payload that failed validation so the next
// call goes back to the API.
func (c *Client) rejectPayload(ctx context.Context, endpoint string, err error) {
	var de *DecodeError
	if !errors.As(err, &de) {
		return
	}
	metrics.APIDecodeErrors.WithLabelValues(endpoint).Inc()
	if ierr := c.store.Invalidate(endpoint); ierr != nil {
		c.log.WarnContext(ctx, "failed to drop invalid cache entry", "endpoint", endpoint, "error", ierr)
		return
	}
	c.log.WarnContext(ctx, "dropped cache entry that failed validation", "endpoint", endpoint, "error", err)
}
