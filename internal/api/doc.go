// Package api serves the storyreel HTTP surface.
//
// # Routes
//
//	POST /generate-story   {prompt, duration} -> {success, story}
//	POST /api/jobs         {prompt, duration} -> 202 {success, job}
//	GET  /api/jobs         ?status=pending&status=failed -> {success, jobs}
//	GET  /api/jobs/{id}    -> {success, job} (story included once generated)
//	POST /match-music      {mood, genre, title} -> {success, music, mood, genre}
//	GET  /list-music       -> {success, music_library, total_count}
//	GET  /health           -> {status, service, timestamp, checks}
//
// Every response carries an X-Request-ID header; an incoming header is
// reused. When api.token is set, every route except /health requires
// "Authorization: Bearer <token>".
//
// Errors use {success:false, error} with a status derived from the services
// error markers (validation 400, not_found 404, everything else 500).
package api
