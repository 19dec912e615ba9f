// Package wheel implements a circular timing wheel: a fixed ring of buckets
// that defers small callback units ("tasks") to a future tick of a discrete
// logical clock, optionally repeating them, without a goroutine or OS timer
// per task.
//
// # Model
//
// A Wheel of length L supports delays and periods of up to L-1 ticks. Each
// bucket holds an intrusive FIFO of the tasks due at ticks that map to its
// index (tick mod L). Advance reads the tick source (or self-increments by
// one), then drains every bucket from the previous cursor up to the new
// tick, bounded to one full rotation per call; backlog beyond that is picked
// up by subsequent calls.
//
// # Ownership
//
// The wheel performs no locking and is single-owner by contract: every call,
// including task callbacks (which run synchronously inside Advance), must
// happen on one goroutine. Integrators that need cross-goroutine scheduling
// wrap the wheel in their own loop; internal/timer is the pump this repo
// uses.
//
// # Failure policy
//
// A panicking callback is caught, reported through the wheel's Logger, and
// otherwise treated as a normal return: the dispatch loop continues and the
// task still takes its post-run transition.
package wheel
