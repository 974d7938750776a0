// Package process runs short-lived external commands with a hard timeout.
//
// It is used to drive helper binaries such as libcoap's coap-client, which
// can hang indefinitely when a DTLS peer stops answering.
//
// Features:
//   - Each command runs in its own process group
//   - On timeout the whole group is sent SIGKILL (no graceful attempt)
//   - Stdout and stderr are captured in full
//   - Context-based cancellation for callers that give up early
//
// Example usage:
//
//	r := process.NewRunner()
//	res, err := r.Run(ctx, process.Command{
//	    Name:    "coap-client",
//	    Binary:  "/usr/local/bin/coap-client",
//	    Args:    []string{"-m", "get", "coaps://192.168.1.50:5684/15001"},
//	    Timeout: 5 * time.Second,
//	})
//	if errors.Is(err, process.ErrTimeout) {
//	    // gateway did not answer
//	}
package process
