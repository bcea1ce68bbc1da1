package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"saintchat/model"
	"saintchat/platform"
)

// Tier is the caller's access class.
type Tier int

const (
	NotEntitled Tier = iota
	Entitled
)

func (t Tier) String() string {
	if t == Entitled {
		return "premium"
	}
	return "free"
}

type UserReader interface {
	GetUser(ctx context.Context, uid string) (*model.User, error)
}

type CustomerReader interface {
	GetCustomer(ctx context.Context, uid string) (*model.Customer, error)
}

// EntitlementSource is one step of the resolution chain. decisive is false when the
// source has no verdict and the next source should be consulted.
type EntitlementSource interface {
	Name() string
	Check(ctx context.Context, uid string) (tier Tier, decisive bool, err error)
}

// EntitlementResolver walks its sources in order and stops at the first decisive
// verdict. Lookup failures skip to the next source; with no verdict the caller is
// NotEntitled.
type EntitlementResolver struct {
	sources []EntitlementSource
	log     logrus.FieldLogger
}

func NewEntitlementResolver(log logrus.FieldLogger, sources ...EntitlementSource) *EntitlementResolver {
	return &EntitlementResolver{sources: sources, log: log}
}

func (r *EntitlementResolver) Resolve(ctx context.Context, uid string) Tier {
	reqID := RequestID(ctx)
	for _, src := range r.sources {
		tier, decisive, err := src.Check(ctx, uid)
		if err != nil {
			r.log.Warnf("[%s] entitlement source %s failed for user %s: %s", reqID, src.Name(), uid, err)
			platform.RecordStorageDegraded("entitlement_" + src.Name())
			continue
		}
		if decisive {
			r.log.Debugf("[%s] user %s resolved to %s by %s", reqID, uid, tier, src.Name())
			return tier
		}
	}
	r.log.Debugf("[%s] user %s has no premium entitlement", reqID, uid)
	return NotEntitled
}

// CustomerEntitlementSource reads the commerce mirror record.
type CustomerEntitlementSource struct {
	Customers     CustomerReader
	ProductID     string
	EntitlementID string
}

func (s CustomerEntitlementSource) Name() string { return "customer" }

func (s CustomerEntitlementSource) Check(ctx context.Context, uid string) (Tier, bool, error) {
	customer, err := s.Customers.GetCustomer(ctx, uid)
	if errors.Is(err, model.ErrNotFound) {
		return NotEntitled, false, nil
	}
	if err != nil {
		return NotEntitled, false, err
	}
	if customer.EntitlementActive(s.ProductID, s.EntitlementID) {
		return Entitled, true, nil
	}
	// An inactive mirror entitlement is not a verdict; the user flags may still grant access.
	return NotEntitled, false, nil
}

// UserFlagSource reads the manual premium overrides on the user record.
type UserFlagSource struct {
	Users UserReader
}

func (s UserFlagSource) Name() string { return "user" }

func (s UserFlagSource) Check(ctx context.Context, uid string) (Tier, bool, error) {
	user, err := s.Users.GetUser(ctx, uid)
	if errors.Is(err, model.ErrNotFound) {
		return NotEntitled, false, nil
	}
	if err != nil {
		return NotEntitled, false, err
	}
	if user.HasPremiumFlag() {
		return Entitled, true, nil
	}
	return NotEntitled, false, nil
}
