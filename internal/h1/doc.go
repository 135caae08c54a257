// Package h1 assembles HTTP/1.1 messages from a connection's byte stream
// and serialises fully-buffered responses back onto it.
//
// ReadRequest reconstitutes one request per call: request line, decoded
// URI split into path and query, case-insensitive headers, and a body
// buffered up to the declared Content-Length. A request head carrying
// "Connection: Upgrade" and "Upgrade: websocket" is flagged so the caller
// can divert it to the WebSocket handshake instead of dispatch.
//
// Responses are written whole: the status line, Content-Length equal to
// the body byte length, headers, and body in a single pass. Chunked
// transfer encoding and streaming bodies are not supported.
package h1
