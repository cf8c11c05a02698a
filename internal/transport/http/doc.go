// Package http implements the HTTP handlers of the ΔΔCt web service.
//
// Handlers stay thin: they parse the multipart upload and form fields, hand
// an UploadRequest to the analysis service and turn the outcome into either
// a workbook attachment, a JSON preview or an RFC 7807 problem. Domain
// failures (missing columns, no control match, missing reference or
// baseline) become 422 problems carrying a stable error_code; malformed
// option fields become 400 problems.
//
// Routes:
//
//	POST /api/analyze          multipart "file" + options → .xlsx attachment
//	POST /api/analyze/preview  multipart "file" + options → JSON tables
//	GET  /healthz /readyz /livez
//	GET  /api/version
package http
