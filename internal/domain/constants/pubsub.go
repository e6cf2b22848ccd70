// Package constants holds shared string constants.
package constants

// EnvLocal is the env.env value of developer machines.
const EnvLocal = "local"

const (
	// PubSubProviderLocal publishes events as HTTP push messages to a local endpoint.
	PubSubProviderLocal = "local"
	// PubSubProviderGoogle publishes events to Google Cloud Pub/Sub.
	PubSubProviderGoogle = "google"

	// EventTypeOrderPlaced is the event_type attribute of order.placed messages.
	EventTypeOrderPlaced = "order.placed"
)
