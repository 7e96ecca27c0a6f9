// Package api serves the league over HTTP.
//
// Every response body is an envelope: {"data": ...} on success or
// {"error": {"message": ..., "statusCode": ...}} on failure, with the HTTP
// status taken from the error kind. Mutating routes require a bearer token
// issued by POST /login.
package api
