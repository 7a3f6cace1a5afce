// Package imagegen fetches scene images from a Pollinations-style endpoint:
// GET {base}/prompt/{escaped prompt}?width&height&nologo=true&model&seed.
// Transient failures (timeouts, 408/429/5xx, truncated bodies) are retried
// with a linear backoff.
package imagegen
