// Package server implements the echo relay's WebSocket server.
//
// Every accepted connection gets its own session goroutine. A session adds
// its connection to the shared registry before reading, echoes each text
// message it receives to a snapshot of all registered connections (itself
// included) as "Echo: <message>", and removes the connection again however
// the read loop ends. Sends to one recipient never hold the registry lock,
// and a failing recipient never interrupts delivery to the others.
package server
