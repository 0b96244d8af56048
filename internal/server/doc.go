// Package server exposes the compressor over HTTP.
//
// Routes:
//   - POST /compress?token=T accepts a multipart "file" upload and schedules
//     its compression, answering with JSON true once the job is queued.
//   - GET /ws?token=T streams the session's events as JSON text frames and
//     closes after the job's Done event.
//   - GET /download/{hash} serves the compressed pack named after the upload.
//   - GET /api/status reports dependencies, live sessions, and running jobs.
//
// All routes pass through CORS and request-id middleware. Start takes an
// exclusive lock on the storage directory so two servers never share it.
package server
