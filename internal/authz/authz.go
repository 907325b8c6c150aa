// Package authz answers one question: may this subject perform this action on
// this resource? Decisions are made by per-resource Policy functions that only
// see the subject's permission names, never role internals.
package authz

import (
	"context"
)

// Action is a capability verb checked against a policy.
type Action string

// Actions used by resource controllers.
const (
	ViewAny Action = "viewAny"
	View    Action = "view"
	Create  Action = "create"
	Update  Action = "update"
	Delete  Action = "delete"
)

// Subject is the caller being authorized, with its granted permission names.
type Subject struct {
	UserID      string
	Permissions map[string]struct{}
}

// NewSubject builds a Subject from a list of permission names.
func NewSubject(userID string, perms []string) Subject {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return Subject{UserID: userID, Permissions: set}
}

// HasPermission reports whether the subject was granted name.
func (s Subject) HasPermission(name string) bool {
	_, ok := s.Permissions[name]
	return ok
}

// Policy decides whether subject may perform action on resource. resource is
// nil for collection-level actions such as ViewAny and Create.
type Policy func(subject Subject, action Action, resource any) bool

// PermissionSource loads the permission names granted to a user.
type PermissionSource interface {
	UserPermissions(ctx context.Context, userID string) ([]string, error)
}

// Checker routes checks to the policy registered for a resource kind. Kinds
// without a policy are denied.
type Checker struct {
	source   PermissionSource
	policies map[string]Policy
}

// NewChecker returns a Checker backed by source.
func NewChecker(source PermissionSource) *Checker {
	return &Checker{source: source, policies: map[string]Policy{}}
}

// Register installs the policy for a resource kind, e.g. "product".
func (c *Checker) Register(kind string, p Policy) *Checker {
	c.policies[kind] = p
	return c
}

// Subject resolves the permissions of userID.
func (c *Checker) Subject(ctx context.Context, userID string) (Subject, error) {
	perms, err := c.source.UserPermissions(ctx, userID)
	if err != nil {
		return Subject{}, err
	}
	return NewSubject(userID, perms), nil
}

// Can evaluates the policy for kind. A permission lookup failure is returned
// as an error rather than a denial.
func (c *Checker) Can(ctx context.Context, userID, kind string, action Action, resource any) (bool, error) {
	p, ok := c.policies[kind]
	if !ok {
		return false, nil
	}
	s, err := c.Subject(ctx, userID)
	if err != nil {
		return false, err
	}
	return p(s, action, resource), nil
}
