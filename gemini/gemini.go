// Package gemini implements [drip.Backend] directly against the Google
// Gemini API.
//
// It wraps the google.golang.org/genai SDK so drip can chat without a
// deep-agent server. Thought parts become thought events and text parts
// become content events; the SDK's iter.Seq2 iterator is wrapped into the
// pull-based [drip.Stream] interface.
package gemini

const defaultModel = "gemini-2.5-flash"
