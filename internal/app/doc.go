// Package app wires the ΔΔCt web service together and runs it.
//
// New builds, in order: OpenTelemetry providers and the analysis metrics,
// the analysis and health services, then the chi router and the
// http.Server. Run blocks until SIGINT or SIGTERM and then drains
// in-flight requests within the configured shutdown timeout.
//
// Middleware order on every route is RequestID, OTel, error
// logging/recovery, security headers, optional CORS and the request
// timeout. Routes under /api are additionally rate limited, and the
// analysis routes cap the upload body at Server.MaxUploadBytes.
//
// Usage:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
package app
