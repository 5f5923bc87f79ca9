// Package join assembles per-user composite views from the user, user_stats
// and subscription resources.
package join

import (
	"github.com/forgev2/forge-admin/internal/index"
	"github.com/forgev2/forge-admin/pkg/types"
)

// UserView is one user with its usage stats and subscription attached.
// Stats and Subscription are empty rows, never nil, when no match exists.
type UserView struct {
	User         types.Row
	Stats        types.Row
	Subscription types.Row
}

// Users left-joins stats and subscriptions onto every user by user.id. stats
// is expected to be keyed by user_id and subs by reference_id. The output has
// exactly one view per input user, in input order.
func Users(users []types.Row, stats, subs index.Index) []UserView {
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		if u == nil {
			u = types.Row{}
		}
		id := u.Get("id")
		views = append(views, UserView{
			User:         u,
			Stats:        stats.GetOrEmpty(id),
			Subscription: subs.GetOrEmpty(id),
		})
	}
	return views
}

// StatsIndex indexes user_stats rows by user_id.
func StatsIndex(stats []types.Row) index.Index {
	return index.Build(stats, "user_id")
}

// SubscriptionIndex indexes subscription rows by reference_id.
func SubscriptionIndex(subs []types.Row) index.Index {
	return index.Build(subs, "reference_id")
}

// UserIndex indexes user rows by id.
func UserIndex(users []types.Row) index.Index {
	return index.Build(users, "id")
}

// FromResources builds the indexes and joins users from a resource set.
func FromResources(set *types.ResourceSet) []UserView {
	return Users(
		set.Rows(types.ResourceUser),
		StatsIndex(set.Rows(types.ResourceUserStats)),
		SubscriptionIndex(set.Rows(types.ResourceSubscription)),
	)
}
