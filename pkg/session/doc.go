// Package session drives a Mifare Classic card through a reader channel.
//
// A Session moves through four states:
//
//	Disconnected -> Connected -> KeyLoaded(type) -> Authenticated(block, type)
//
// and refuses, without any I/O, the operations the current state does not
// allow. Status words decide every transition: a rejected key load or
// authentication drops back to Connected, a channel fault drops to
// Disconnected and releases the channel. Nothing is retried.
package session
