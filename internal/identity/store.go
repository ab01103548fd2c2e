package identity

import (
	"context"
	"log/slog"
)

// Store persists identities. InsertIdentityIfAbsent must be idempotent:
// when the user already exists it reports inserted=false and no error.
type Store interface {
	LookupIdentity(ctx context.Context, userID int64) (Identity, bool, error)
	InsertIdentityIfAbsent(ctx context.Context, id Identity) (inserted bool, err error)
}

// Ensure makes sure id exists in store, creating a placeholder user when it
// does not. Store failures are logged and never returned: a file whose user
// cannot be recorded still has its trips processed. It reports whether this
// call created the identity. Non-positive ids are never stored.
func Ensure(ctx context.Context, store Store, id Identity, log *slog.Logger) bool {
	if store == nil {
		return false
	}
	if id.UserID <= 0 {
		log.Warn("not recording identity with non-positive user id", "user_id", id.UserID)
		return false
	}
	existing, found, err := store.LookupIdentity(ctx, id.UserID)
	if err != nil {
		log.Warn("identity lookup failed", "user_id", id.UserID, "err", err)
		return false
	}
	if found {
		if existing.VehicleNumber != id.VehicleNumber {
			log.Debug("existing identity keeps its vehicle number",
				"user_id", id.UserID, "stored", existing.VehicleNumber, "resolved", id.VehicleNumber)
		}
		return false
	}

	inserted, err := store.InsertIdentityIfAbsent(ctx, id)
	if err != nil {
		log.Warn("identity insert failed", "user_id", id.UserID, "err", err)
		return false
	}
	if !inserted {
		log.Info("identity created concurrently", "user_id", id.UserID)
		return false
	}
	log.Info("created identity", "user_id", id.UserID, "vehicle_number", id.VehicleNumber)
	return true
}
