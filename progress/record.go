package progress

import (
	"errors"
	"time"

	"github.com/Titouaaaan/tutormesh/core"
)

// ErrInvalidRecord is returned for records without a learner or role.
var ErrInvalidRecord = errors.New("invalid progress record")

// Prepare validates rec, normalizes its role and fills ID and CreatedAt
// when unset.
func Prepare(rec *core.ProgressRecord) error {
	if rec.UserID == "" {
		return errors.Join(ErrInvalidRecord, errors.New("user id is empty"))
	}
	role, err := core.ParseRole(rec.AgentRole)
	if err != nil {
		return errors.Join(ErrInvalidRecord, err)
	}
	rec.AgentRole = string(role)
	if rec.ID == "" {
		rec.ID = core.NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return nil
}
