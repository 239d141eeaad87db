// Package anthropic defines the Anthropic Messages API wire types served by
// the gateway: requests, responses, content-block unions and streaming event
// payloads.
//
// The types are hand-rolled rather than borrowed from a client SDK because the
// gateway sits on the server side of the protocol: it must decode permissive
// client input (string-or-list content, raw tool_result payloads) and encode
// exact response shapes, neither of which client SDK param/response types are
// built for.
package anthropic
