// Package api serves the read-only log viewer. Notable routes:
//   - GET / renders the buffered log as a dark preformatted page.
//   - GET /index.html is an alias of /.
//
// There are no other routes, no mutation endpoints, and no authentication.
package api
