// Package event defines the Event type, the single message unit exchanged
// through the gateway's bus, along with its kinds and wire JSON mapping.
package event
