// Package http contains the HTTP presentation layer over the analysis
// pipeline: chi routers, request decoding, and RFC 7807 error responses.
// It holds no analysis logic; every operation delegates to the services
// layer and returns its structures verbatim.
package http
