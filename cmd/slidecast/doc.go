// Command slidecast is the CLI companion to slidecastd. It submits decks,
// inspects job progress, and retrieves finished videos over the daemon's
// HTTP API.
package main
