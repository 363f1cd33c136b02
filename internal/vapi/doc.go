// Package vapi implements the webhook protocol spoken by the voice assistant
// platform: the wire types, the call identity resolver, and the tool-call
// dispatcher.
//
// Every webhook delivery is stateless on the wire; the only cross-request
// state is the session registry and the call identity cache, which the
// resolver consults in priority order to map an opaque call ID back to an
// authenticated user.
package vapi
