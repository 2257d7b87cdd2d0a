// Package status holds the closed set of gig statuses and the role-scoped
// transition table. The permitted targets depend on which role created the
// gig: a User-created gig runs the Open/Assigned flow, a Provider-created gig
// runs the Requested flow. The table is a pure lookup so adding a role or a
// status never touches caller logic.
package status

import "gigs/models"

type key struct {
	creatorRole string
	current     string
	actorRole   string
}

var transitions = map[key][]string{
	// Gig created by a User requesting work: the owner resolves bidding and
	// signs off on the result, the assigned provider performs the work.
	{models.RoleUser, models.GigStatusOpen, models.RoleUser}:         {models.GigStatusAssigned, models.GigStatusNotAssigned},
	{models.RoleUser, models.GigStatusAssigned, models.RoleProvider}: {models.GigStatusInProgress},
	{models.RoleUser, models.GigStatusAssigned, models.RoleUser}:     {models.GigStatusApproved, models.GigStatusRejected},
	{models.RoleUser, models.GigStatusInProgress, models.RoleProvider}: {models.GigStatusCompleted},
	{models.RoleUser, models.GigStatusCompleted, models.RoleUser}:      {models.GigStatusApproved, models.GigStatusRejected},

	// Gig created by a Provider offering a service: a User requests it, the
	// provider performs, the requesting user signs off.
	{models.RoleProvider, models.GigStatusOpen, models.RoleUser}:            {models.GigStatusRequested},
	{models.RoleProvider, models.GigStatusRequested, models.RoleProvider}:   {models.GigStatusInProgress},
	{models.RoleProvider, models.GigStatusInProgress, models.RoleProvider}:  {models.GigStatusCompleted},
	{models.RoleProvider, models.GigStatusCompleted, models.RoleUser}:       {models.GigStatusApproved, models.GigStatusRejected},
}

// IsValidTransition reports whether the requested status is reachable from
// the current one for this actor role on a gig created by creatorRole.
// Admins may take any edge some role is permitted to take.
func IsValidTransition(current, requested, actorRole, creatorRole string) bool {
	for _, s := range AllowedTargets(current, actorRole, creatorRole) {
		if s == requested {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses the actor may move the gig to.
func AllowedTargets(current, actorRole, creatorRole string) []string {
	if actorRole == models.RoleAdmin {
		var out []string
		for _, role := range []string{models.RoleUser, models.RoleProvider} {
			out = append(out, transitions[key{creatorRole, current, role}]...)
		}
		return out
	}
	return transitions[key{creatorRole, current, actorRole}]
}

// RequiresAssignment reports whether a gig in this status must carry an
// approved bid reference.
func RequiresAssignment(s string) bool {
	switch s {
	case models.GigStatusAssigned, models.GigStatusInProgress,
		models.GigStatusCompleted, models.GigStatusApproved:
		return true
	}
	return false
}

// Assignable reports whether a bid may still be approved while the gig is in
// this status.
func Assignable(s string) bool {
	return s == models.GigStatusOpen || s == models.GigStatusRequested
}

// IsTerminal reports whether the status ends the gig's main flow.
// Not-Assigned closes the bidding round for good; a Rejected gig may still
// receive a rating before final closure.
func IsTerminal(s string) bool {
	switch s {
	case models.GigStatusApproved, models.GigStatusRejected, models.GigStatusNotAssigned:
		return true
	}
	return false
}

// Rateable reports whether a gig in this status may receive a rating.
func Rateable(s string) bool {
	return s == models.GigStatusCompleted || s == models.GigStatusRejected
}

// Known reports whether s is a member of the closed gig status set.
func Known(s string) bool {
	switch s {
	case models.GigStatusOpen, models.GigStatusRequested, models.GigStatusAssigned,
		models.GigStatusNotAssigned, models.GigStatusInProgress,
		models.GigStatusCompleted, models.GigStatusApproved, models.GigStatusRejected:
		return true
	}
	return false
}
