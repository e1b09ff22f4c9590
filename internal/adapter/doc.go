// Package adapter provides the HTTP transport between the sync client and the
// vault API.
//
// [HTTPAdapter] implements [AuthAdapter] for the challenge protocol and
// account endpoints and carries the session state shared by every request:
// the "Authorization" session cookie (kept in the resty cookie jar) and the
// anti-forgery token sent as the "CSRF-Token" header on every unsafe method.
// [ResourceClient] is the generic CRUD client reused by every encrypted
// resource collection and singleton.
//
// Non-2xx responses are returned as *[HTTPError], which unwraps to one of the
// status sentinels in errors.go so callers can use [errors.Is].
package adapter
