// Package throttle serialises work through named concurrency lanes.
//
// Each lane admits submitted work in FIFO order and runs at most its
// configured limit at a time (one by default). Submit returns a Ticket
// that resolves exactly once with the work's value or error.
//
// The Trådfri gateway's DTLS stack cannot cope with parallel sessions, so
// every coap-client invocation goes through a single "coap" lane:
//
//	q := throttle.New(throttle.Config{DefaultLimit: 1})
//	out, err := throttle.Do(ctx, q, "coap", func(ctx context.Context) ([]byte, error) {
//	    return runCoapClient(ctx)
//	})
//
// There is no retry. A ticket whose context ends before it is admitted fails
// with the context error and its work never runs.
package throttle
