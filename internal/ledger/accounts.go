package ledger

// AccountRole identifies the ledger role an emitted line plays. Tenants may
// remap any role to their own account code and name; unmapped roles fall
// back to the built-in dairy chart.
type AccountRole string

const (
	RoleCash         AccountRole = "cash"
	RoleHeifers      AccountRole = "heifers"
	RoleAsset        AccountRole = "asset"
	RoleAccumDepr    AccountRole = "accum_depr"
	RoleDeprExpense  AccountRole = "depr_expense"
	RoleGainOnSale   AccountRole = "gain_on_sale"
	RoleLossOnSale   AccountRole = "loss_on_sale"
	RoleLossOnDead   AccountRole = "loss_on_dead"
	RoleLossOnCulled AccountRole = "loss_on_culled"
	RoleLossFallback AccountRole = "loss_fallback"
)

// Account is a resolved (code, name) pair.
type Account struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var defaultChart = map[AccountRole]Account{
	RoleCash:         {Code: "1000", Name: "Cash"},
	RoleHeifers:      {Code: "1400", Name: "Heifers"},
	RoleAsset:        {Code: "1500", Name: "Dairy Cows"},
	RoleAccumDepr:    {Code: "1500.1", Name: "Accumulated Depreciation - Dairy Cows"},
	RoleDeprExpense:  {Code: "6100", Name: "Depreciation Expense"},
	RoleGainOnSale:   {Code: "8000", Name: "Gain on Sale of Cows"},
	RoleLossOnDead:   {Code: "9001", Name: "Loss on Dead Cows"},
	RoleLossOnSale:   {Code: "9002", Name: "Loss on Sale of Cows"},
	RoleLossOnCulled: {Code: "9003", Name: "Loss on Culled Cows"},
	RoleLossFallback: {Code: "9000", Name: "Loss on Sale of Assets"},
}

// Roles lists every mappable account role.
func Roles() []AccountRole {
	return []AccountRole{
		RoleCash, RoleHeifers, RoleAsset, RoleAccumDepr, RoleDeprExpense,
		RoleGainOnSale, RoleLossOnSale, RoleLossOnDead, RoleLossOnCulled, RoleLossFallback,
	}
}

// ValidRole reports whether r is a known account role.
func ValidRole(r AccountRole) bool {
	_, ok := defaultChart[r]
	return ok
}

// Chart is a tenant's resolved chart of accounts.
type Chart struct {
	accounts map[AccountRole]Account
}

// NewChart builds a chart from the defaults plus tenant overrides.
func NewChart(overrides map[AccountRole]Account) Chart {
	accounts := make(map[AccountRole]Account, len(defaultChart))
	for role, acct := range defaultChart {
		accounts[role] = acct
	}
	for role, acct := range overrides {
		if _, ok := defaultChart[role]; ok && acct.Code != "" {
			accounts[role] = acct
		}
	}
	return Chart{accounts: accounts}
}

// DefaultChart returns the built-in chart with no overrides.
func DefaultChart() Chart {
	return NewChart(nil)
}

// Resolve returns the account mapped to role.
func (c Chart) Resolve(role AccountRole) Account {
	if c.accounts == nil {
		return defaultChart[role]
	}
	return c.accounts[role]
}

// LossRole returns the loss account role for a disposition type.
func LossRole(dispositionType string) AccountRole {
	switch dispositionType {
	case "sale":
		return RoleLossOnSale
	case "death":
		return RoleLossOnDead
	case "culled":
		return RoleLossOnCulled
	default:
		return RoleLossFallback
	}
}
