package ragclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

// StreamQuery opens the backend's streaming endpoint and assembles its
// newline-delimited JSON event stream into a final Outcome, invoking onUpdate
// with the accumulator snapshot after every decoded event. Cancellation runs
// through ctx: it aborts the connection, discards the accumulator and yields
// a cancelled Outcome with no further onUpdate calls. Exactly one Outcome is
// returned per call; the connection is released on every path.
func (c *Client) StreamQuery(ctx context.Context, req QueryRequest, onUpdate UpdateFunc) Outcome {
	payload, err := json.Marshal(req)
	if err != nil {
		return failedOutcome(&TransportError{Op: "encode request", Err: err})
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+streamEndpoint, bytes.NewReader(payload))
	if err != nil {
		return failedOutcome(&TransportError{Op: "create request", Err: err})
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return cancelledOutcome(ctx.Err())
		}
		return failedOutcome(&TransportError{Op: "connect", Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Small read for diagnostics only; the body is not an event stream.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return failedOutcome(&TransportError{
			Op:         "connect",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response body: %s", bytes.TrimSpace(snippet)),
		})
	}

	return c.processStream(ctx, resp.Body, onUpdate)
}

// processStream runs the read loop: split the body into lines, decode each
// non-empty line, fold it, surface the snapshot. Malformed lines are skipped
// as soft failures. Cancellation is checked at every read and again before
// each fold so it wins over events still sitting in the buffer.
func (c *Client) processStream(ctx context.Context, body io.Reader, onUpdate UpdateFunc) Outcome {
	reader := bufio.NewReader(body)
	acc := &accumulator{}

	for {
		select {
		case <-ctx.Done():
			return cancelledOutcome(ctx.Err())
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return cancelledOutcome(ctx.Err())
			}
			if err == io.EOF {
				// Peer closed without a terminal event. A trailing fragment
				// that never got its newline carries no complete event and is
				// dropped; whatever accumulated still counts as completed.
				return acc.completedOutcome()
			}
			return failedOutcome(&TransportError{Op: "read stream", Err: err})
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}

		ev, err := decodeEvent(trimmed)
		if err != nil {
			log.Printf("[WARN] ragclient: skipping malformed stream line: %v", err)
			continue
		}

		select {
		case <-ctx.Done():
			return cancelledOutcome(ctx.Err())
		default:
		}

		acc.apply(ev)
		if onUpdate != nil {
			onUpdate(acc.snapshot())
		}

		switch ev.Type {
		case EventDone:
			return acc.completedOutcome()
		case EventError:
			return failedOutcome(&UpstreamError{Message: ev.Text})
		}
	}
}
