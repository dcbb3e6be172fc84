package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/onnwee/spacex-launch-tracker/internal/logger"
	"github.com/onnwee/spacex-launch-tracker/internal/metrics"
)

// PreAttempt lets callers run logic (e.g., rate limiting) before each try; return an error to abort.
type PreAttempt func(ctx context.Context, attempt int) error

// AttemptInfo describes a single attempt outcome.
type AttemptInfo struct {
	Attempt int
	Method  string
	URL     string
	Status  int
	Err     error
	Wait    time.Duration
}

// Observer callback to report attempt telemetry.
type Observer func(info AttemptInfo)

// Options controls one request cycle.
type Options struct {
	// MaxAttempts is the total number of tries. Values below 1 mean a single try.
	MaxAttempts int
	// RetryBase is the linear backoff step between attempts.
	RetryBase time.Duration
	// LogAttempts logs every attempt at debug level.
	LogAttempts bool
	Pre         PreAttempt
	Observer    Observer
	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// LimiterPre paces attempts through a token bucket.
func LimiterPre(l *rate.Limiter) PreAttempt {
	if l == nil {
		return nil
	}
	return func(ctx context.Context, attempt int) error {
		if err := l.Wait(ctx); err != nil {
			return err
		}
		metrics.APIRateLimitWaits.Inc()
		return nil
	}
}

// Do runs build+send up to opts.MaxAttempts times. Transport errors, 429 and
// 5xx responses are retried while attempts remain; Retry-After is honored.
// The final response is returned as-is, whatever its status.
func Do(ctx context.Context, client *http.Client, build func(ctx context.Context) (*http.Request, error), opts Options) (*http.Response, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	obs := func(info AttemptInfo) {
		if opts.LogAttempts {
			logger.Debug("httpx attempt", "attempt", info.Attempt, "method", info.Method, "url", info.URL,
				"status", info.Status, "error", info.Err, "wait", info.Wait)
		}
		if opts.Observer != nil {
			opts.Observer(info)
		}
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if opts.Pre != nil {
			if err := opts.Pre(ctx, attempt); err != nil {
				return nil, err
			}
		}
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		info := AttemptInfo{Attempt: attempt, Method: req.Method, URL: req.URL.String()}

		resp, err := client.Do(req)
		var wait time.Duration
		if err != nil {
			metrics.APIHTTPRequests.WithLabelValues("error").Inc()
			info.Err = err
			if attempt == maxAttempts || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				obs(info)
				return nil, err
			}
		} else {
			info.Status = resp.StatusCode
			if !retryableStatus(resp.StatusCode) {
				metrics.APIHTTPRequests.WithLabelValues("success").Inc()
				obs(info)
				return resp, nil
			}
			if attempt == maxAttempts {
				metrics.APIHTTPRequests.WithLabelValues("error").Inc()
				obs(info)
				return resp, nil
			}
			metrics.APIHTTPRequests.WithLabelValues("retry").Inc()
			wait = retryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
		}

		if wait <= 0 {
			// backoff with jitter
			jitter := time.Duration(rand.Intn(200)) * time.Millisecond
			wait = opts.RetryBase*time.Duration(attempt) + jitter
		}
		info.Wait = wait
		obs(info)
		metrics.APIHTTPRetries.Inc()
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, errors.New("exhausted retries")
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
