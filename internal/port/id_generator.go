package port

import "context"

type IDGenerator interface {
	// NextID mints a globally unique, roughly ascending 63-bit id for the
	// given business key.
	NextID(ctx context.Context, businessKey string) (int64, error)
}
