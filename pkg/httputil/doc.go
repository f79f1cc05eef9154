// Package httputil provides the HTTP plumbing shared by remote catalog clients.
//
// # Overview
//
//   - [Client]: a JSON GET client with default headers and status mapping
//   - [Retry]: retries transient failures with exponential backoff
//
// # Status mapping
//
// [Client] turns response codes into errors the caller can act on:
//
//   - 200: success, the body is decoded as JSON
//   - 404: [ErrNotFound]
//   - 429: [ErrRateLimited], retryable
//   - 5xx and transport failures: [ErrNetwork], retryable
//   - anything else: [ErrNetwork], not retried
//
// # Retry
//
// Only errors wrapped in [RetryableError] trigger another attempt:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return client.Get(ctx, url, &v)
//	})
//
// Defaults are 3 attempts starting at a 1 second delay that doubles each time.
// A cancelled context stops the loop with ctx.Err().
package httputil
