// Package delivery defines the contract of every transport the process serves.
package delivery

import "context"

// Delivery is a long-running server started by the application and stopped through fx hooks.
type Delivery interface {
	Serve(ctx context.Context) error
}
