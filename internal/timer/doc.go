// Package timer runs scheduled jobs on a circular timing wheel.
//
// # Overview
//
// One pump goroutine owns the wheel. A ticker advances it; all scheduling
// mutations (config reloads, dynamic After/Every registrations, cancels,
// snapshots) arrive over a command channel, so wheel state never needs a
// lock. Due jobs are handed to a bounded worker pool for execution; the pump
// never blocks on a slow job.
//
// # Schedule formats
//
// Jobs accept multiple schedule syntaxes:
//
//   - Cron expressions: 5-field (min hour dom mon dow) or 6-field with
//     optional seconds. Example: "55 * * * *" or "0 */5 * * * *".
//   - Cron descriptors: "@hourly", "@daily".
//   - Interval durations: "@every 55m", or a bare Go duration like "30s".
//   - Interval HH:MM: "00:50" means every 50 minutes, "02:30" every 2 hours
//     30 minutes.
//
// To force interpretation, prefix the string with "cron:", "interval:", or
// "every:".
//
// # Ticks and horizons
//
// The wheel has a fixed number of buckets, so a single arm can express at
// most wheel_size-1 ticks of delay. Intervals that fit are armed once as
// self-relinking wheel tasks. Longer intervals and cron schedules hop: the
// job arms a one-shot at most a rotation out, and on each fire either runs
// (due tick reached) or re-arms the next hop.
//
// # Clocks
//
// With the "monotonic" clock, ticks derive from elapsed time, so a stall
// (suspend, GC pause, busy host) is caught up on the next wake. With
// "counter", each pump wake is one tick and time stretches under load.
package timer
