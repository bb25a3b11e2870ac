// Package eso is a client for the European Southern Observatory science
// archive. It builds ADQL queries from structured filters, executes them
// against the archive's TAP service with on-disk result caching, manages
// the SSO bearer-token session, retrieves data products, and resolves
// associated calibration files through the CalSelector service.
package eso
