package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"saintchat/model"
	"saintchat/platform"
)

// FreeMessageLimit is the lifetime message ceiling for callers without an entitlement.
const FreeMessageLimit = 30

type QuotaEnforcer struct {
	users UserReader
	limit int
	log   logrus.FieldLogger
}

func NewQuotaEnforcer(users UserReader, log logrus.FieldLogger) *QuotaEnforcer {
	return &QuotaEnforcer{users: users, limit: FreeMessageLimit, log: log}
}

func (q *QuotaEnforcer) Limit() int { return q.limit }

// WithinLimit allows new users and, when the lookup fails, errs toward allowing.
func (q *QuotaEnforcer) WithinLimit(ctx context.Context, uid string) bool {
	count, err := q.MessageCount(ctx, uid)
	if err != nil {
		q.log.Warnf("[%s] message count lookup failed for user %s, allowing: %s", RequestID(ctx), uid, err)
		platform.RecordStorageDegraded("quota_lookup")
		return true
	}
	q.log.Debugf("[%s] user %s message count %d limit %d", RequestID(ctx), uid, count, q.limit)
	return count < q.limit
}

// MessageCount returns 0 for users without a record yet.
func (q *QuotaEnforcer) MessageCount(ctx context.Context, uid string) (int, error) {
	user, err := q.users.GetUser(ctx, uid)
	if errors.Is(err, model.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return user.MessageCount, nil
}
