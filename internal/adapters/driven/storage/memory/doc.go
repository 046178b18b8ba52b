// Package memory provides in-memory implementations of the storage ports.
// They back the unit tests and the server's --memory mode; nothing survives
// a restart.
package memory
