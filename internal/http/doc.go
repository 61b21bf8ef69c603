// Package http exposes the booking flow and the operator tools as a JSON API.
//
// Public endpoints:
//   - GET /slots?weeks=N and GET /slots/dates?weeks=N: free slots starting
//     within the next N weeks, flat or grouped by local date. N defaults to
//     the configured booking window.
//   - POST /bookings: reserves a slot for a household. Body mirrors
//     bookingRequest. Rate limited per client address.
//   - POST /feedback: stores a contact form submission. Rate limited.
//   - GET /faqs: help page entries ordered by position.
//   - GET /healthz: liveness plus a database ping.
//
// Operator endpoints under /admin require a bearer token from
// POST /admin/sessions:
//   - POST /admin/meetings: inserts one slot.
//   - POST /admin/meetings/batches: expands a weekly rule (recurrence.RuleSpec).
//   - DELETE /admin/meetings/dates/{YYYY-MM-DD}: removes a day's slots unless
//     one of them is reserved.
//   - GET /admin/calendar.ics?from=&to=: iCalendar feed of every slot.
//
// Errors are JSON objects with "message", an optional stable "error_code"
// and, for 422 responses, an "errors" map keyed by field path.
package http
