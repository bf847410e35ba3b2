// Package server provides HTTP routing, middleware, and the web endpoints
// for the playlist conversion service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Endpoints
//
// [IndexHandler] serves the embedded single-page UI at "/".
//
// [PreviewHandler] serves "/api/spotify", fetching a playlist's name and
// tracks without converting it.
//
// [ConvertHandler] serves "/api/convert" as a server-sent event stream.
// One conversion runs per request; closing the EventSource cancels it
// through the request context. Pre-flight failures (no credentials, failed
// validation) are delivered as error events on the stream because
// EventSource clients cannot read non-2xx response bodies.
//
// [AuthHandler] serves "/api/auth/status" and "/api/auth/headers" for
// checking and replacing the captured YouTube Music credentials.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
