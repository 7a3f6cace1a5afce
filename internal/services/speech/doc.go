// Package speech is the client for the text-to-speech collaborator. It POSTs
// {"text","lang","voice"} to {base}/synthesize and returns the audio body.
// Languages are parsed as BCP 47 tags and must resolve to ko, en, ja, zh, or es.
package speech
