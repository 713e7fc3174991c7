package query

// Mutation identifies the kind of successful write that just happened.
// Create, update and delete of the same entity invalidate identically.
type Mutation string

const (
	MutationTransaction  Mutation = "transaction"
	MutationBudget       Mutation = "budget"
	MutationCategory     Mutation = "category"
	MutationAccount      Mutation = "account"
	MutationTransfer     Mutation = "transfer"
	MutationNotification Mutation = "notification"
)

// invalidationRules maps each mutation to every entity group whose cached
// data could have changed because of it. Transactions fan out widest: the
// dashboard, account balances and budget progress are all derived from the
// transaction ledger.
var invalidationRules = map[Mutation][]string{
	MutationTransaction:  {GroupTransactions, GroupDashboard, GroupAccounts, GroupBudgets},
	MutationBudget:       {GroupBudgets, GroupDashboardBudgets, GroupDashboard},
	MutationCategory:     {GroupCategories, GroupDashboard},
	MutationAccount:      {GroupAccounts, GroupDashboard},
	MutationTransfer:     {GroupAccounts, GroupDashboard, GroupTransactions},
	MutationNotification: {GroupAdminNotifications, GroupNotificationBadge},
}

// GroupsFor returns the entity groups invalidated by a mutation.
func GroupsFor(m Mutation) []string {
	return invalidationRules[m]
}

// InvalidateAfter applies the rule table for a mutation that has already
// succeeded. Callers must only invoke this after a successful server
// response; a dispatched-but-failed mutation never invalidates anything.
func (c *Cache) InvalidateAfter(m Mutation) {
	groups := invalidationRules[m]
	if len(groups) == 0 {
		return
	}
	c.Invalidate(groups...)
}
