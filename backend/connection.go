package backend

import (
	"context"
	"fmt"

	"github.com/dracory/weeredis/shared/result"
)

// ConnectRedis opens a connection to the server described by the profile and
// selects its default database.
func (b *Backend) ConnectRedis(ctx context.Context, args ConnectArgs) result.Result[result.Empty] {
	if args.Config.ID == "" {
		return result.Failure[result.Empty]("connection id is required")
	}
	if err := b.registry.Connect(ctx, args.Config); err != nil {
		b.logger.Warn("backend: connect failed", "id", args.Config.ID, "host", args.Config.Host, "error", err)
		return result.Failuref[result.Empty]("connection failed: %v", err)
	}
	return result.Done(fmt.Sprintf("connected to %s", args.Config.Name))
}

// DisconnectRedis closes a connection.
func (b *Backend) DisconnectRedis(_ context.Context, args ConnectionArgs) result.Result[result.Empty] {
	if !b.registry.Disconnect(args.ConnectionID) {
		return result.Failure[result.Empty]("connection not found")
	}
	return result.Done("connection closed")
}
