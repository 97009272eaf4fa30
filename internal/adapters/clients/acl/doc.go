// Package acl keeps remote representations out of the domain.
//
// Every remote failure leaves this package as a domain error:
//
//   - 404 Not Found becomes [domain.ErrNotFound]
//   - 5xx, 429, transport errors, an open circuit, and exhausted retries
//     become [domain.ErrUnavailable]
//   - any other 4xx becomes [domain.ErrUnavailable] too, since nothing the
//     caller does can fix a remote that rejects a plain fetch
//
// The raw collection text crosses the boundary untouched; decoding it is
// the codec's job.
package acl
