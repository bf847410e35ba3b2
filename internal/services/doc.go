// Package services implements the Spotify track source and the YouTube
// Music resolver/sink behind small per-concern interfaces.
//
// The Spotify source scrapes the public embed page (no credentials) and
// switches to the official Web API when client credentials are configured.
// The YouTube Music client talks to the innertube web API using captured
// browser headers with a per-request SAPISIDHASH authorization.
//
// Both clients keep their internal fallback strategy behind the interface:
// the orchestrator never learns which path produced a result.
package services
