package ragclient

import "strings"

// Snapshot is an immutable view of the accumulator handed to the update
// callback after every folded event. Sources and FollowUps are nil until the
// corresponding event arrives.
type Snapshot struct {
	Answer    string
	Sources   []string
	FollowUps []string
	Done      bool
}

// UpdateFunc receives the accumulator snapshot after each decoded event, in
// strict arrival order. It runs synchronously on the streaming goroutine;
// reading does not continue until it returns.
type UpdateFunc func(Snapshot)

// OutcomeStatus classifies the single terminal result of one streaming
// invocation.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeCancelled OutcomeStatus = "cancelled"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Outcome is the one terminal result produced per invocation. Answer, Sources
// and FollowUps are populated only for a completed outcome: a failed outcome
// deliberately drops partial text (the caller renders a failure notice
// instead) and a cancelled one discards the accumulator entirely.
type Outcome struct {
	Status    OutcomeStatus
	Answer    string
	Sources   []string
	FollowUps []string
	Err       error
}

// Completed reports whether the stream reached a normal end, including the
// peer closing without a terminal event.
func (o Outcome) Completed() bool {
	return o.Status == OutcomeCompleted
}

// Cancelled reports whether the invocation was aborted by its caller.
func (o Outcome) Cancelled() bool {
	return o.Status == OutcomeCancelled
}

// accumulator is the mutable state owned by exactly one in-flight invocation.
// strings.Builder keeps token appends linear.
type accumulator struct {
	answer    strings.Builder
	sources   []string
	followUps []string
	closed    bool
}

// apply folds one decoded event. Token text appends in arrival order; sources
// and follow-ups replace any previous value wholesale; terminal events only
// close the stream.
func (a *accumulator) apply(ev *StreamEvent) {
	switch ev.Type {
	case EventToken:
		a.answer.WriteString(ev.Text)
	case EventSources:
		a.sources = ev.List
	case EventFollowUps:
		a.followUps = ev.List
	case EventDone, EventError:
		a.closed = true
	}
}

func (a *accumulator) snapshot() Snapshot {
	return Snapshot{
		Answer:    a.answer.String(),
		Sources:   a.sources,
		FollowUps: a.followUps,
		Done:      a.closed,
	}
}

// completedOutcome seals the accumulator into a completed Outcome. Also used
// when the peer closes the stream without a terminal event: partial answers
// are delivered, not discarded.
func (a *accumulator) completedOutcome() Outcome {
	return Outcome{
		Status:    OutcomeCompleted,
		Answer:    a.answer.String(),
		Sources:   a.sources,
		FollowUps: a.followUps,
	}
}

func cancelledOutcome(err error) Outcome {
	return Outcome{Status: OutcomeCancelled, Err: err}
}

func failedOutcome(err error) Outcome {
	return Outcome{Status: OutcomeFailed, Err: err}
}
