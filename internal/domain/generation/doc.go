// Package generation owns the lifecycle of one generation session.
//
// A Controller submits a prompt to the backend, opens a progress channel for
// the returned generation id and folds the channel's events into a Session.
// At most one channel is owned at a time. Submitting again or calling Reset
// closes the owned channel first, and any event that still arrives from a
// released channel is discarded.
//
// State machine:
//
//	idle -> submitting -> processing -> completed
//	            |              |
//	            +--> failed <--+
//
// Terminal states are left only through a new Submit or Reset. A Submit
// rejected by validation leaves the current session and its channel in place
// and only records the message in Session.Validation.
package generation
