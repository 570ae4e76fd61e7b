package intent

import (
	"regexp"
	"strings"
)

// Pattern is one compiled match expression of a catalog entry.
type Pattern struct {
	source string
	re     *regexp.Regexp

	// Shape flags consulted by Extract.
	digitGroup bool
	wordGroup  bool
}

// String returns the pattern as it was declared.
func (p *Pattern) String() string {
	return p.source
}

// Match reports whether the pattern matches the whole normalized text.
func (p *Pattern) Match(text string) bool {
	return p.re.MatchString(text)
}

// Entry binds an action to its ordered patterns.
type Entry struct {
	Action   Action
	Patterns []*Pattern
}

// Catalog is the ordered set of actions available to a role. Actions and
// patterns are tried in declaration order; looser patterns are declared after
// the specific ones they would otherwise shadow.
type Catalog struct {
	Role    Role
	Entries []Entry
}

// Actions returns the catalog's actions in declaration order.
func (c *Catalog) Actions() []Action {
	actions := make([]Action, len(c.Entries))
	for i, e := range c.Entries {
		actions[i] = e.Action
	}
	return actions
}

// Has reports whether the action belongs to the catalog.
func (c *Catalog) Has(action Action) bool {
	for _, e := range c.Entries {
		if e.Action == action {
			return true
		}
	}
	return false
}

// match returns the first entry and pattern matching text.
func (c *Catalog) match(text string) (Action, *Pattern, bool) {
	for _, e := range c.Entries {
		for _, p := range e.Patterns {
			if p.Match(text) {
				return e.Action, p, true
			}
		}
	}
	return "", nil, false
}

func compile(source string) *Pattern {
	return &Pattern{
		source:     source,
		re:         regexp.MustCompile(`^(?:` + source + `)$`),
		digitGroup: strings.Contains(source, `(\d+)`),
		wordGroup:  strings.Contains(source, `(\w+)`),
	}
}

func entry(action Action, sources ...string) Entry {
	e := Entry{Action: action, Patterns: make([]*Pattern, len(sources))}
	for i, s := range sources {
		e.Patterns[i] = compile(s)
	}
	return e
}

var adminCatalog = &Catalog{
	Role: RoleAdmin,
	Entries: []Entry{
		entry(ActionApproveBuild,
			`approve.*build.*(\d+)`,
			`approve.*build.*(\w+)`,
			`approve.*production.*build`,
			`approve.*build.*for.*(\w+)`,
			`approve.*(\d+)`,
			`approve.*(\w+)`,
			`approve.*build`,
		),
		entry(ActionShowApprovals,
			`show.*pending.*approvals`,
			`show.*approvals`,
			`list.*approvals`,
			`pending.*approvals`,
			`approvals`,
		),
		entry(ActionGenerateReport,
			`generate.*report`,
			`create.*report`,
			`show.*deployment.*report`,
			`deployment.*report`,
			`report`,
		),
		// Orchestration precedes analysis so "analyze and deploy x" plans a
		// deployment instead of only scoring it.
		entry(ActionDeploymentOrchestration,
			`orchestrate.*deployment.*(\w+)`,
			`smart.*deploy.*(\w+)`,
			`intelligent.*deploy.*(\w+)`,
			`analyze.*and.*deploy.*(\w+)`,
			`orchestrate.*(\w+)`,
			`smart.*deploy`,
			`intelligent.*deploy`,
		),
		entry(ActionDeploymentAnalysis,
			`analyze.*deployment.*(\w+)`,
			`check.*deployment.*readiness.*(\w+)`,
			`deployment.*safety.*check.*(\w+)`,
			`analyze.*(\w+)`,
			`deployment.*analysis`,
			`safety.*check`,
		),
		// Rewards before the generic api entry: "deploy rewards api" matches both.
		entry(ActionDeployRewardsDetails,
			`deploy.*rewards.*details`,
			`deploy.*rewards.*api`,
			`deploy.*rewards.*service`,
			`rewards.*deploy`,
			`deploy.*rewards`,
		),
		entry(ActionDeployAPI,
			`deploy.*\bapi\b.*(\w+)`,
			`deploy.*(\w+).*\bapi`,
			`\bapi\b.*deploy.*(\w+)`,
			`deploy.*\bapi\b`,
		),
		entry(ActionDeployProduction,
			`deploy.*(\w+).*to.*production`,
			`deploy.*production.*(\w+)`,
			`release.*(\w+).*to.*production`,
			`deploy.*(\w+)`,
			`production.*deploy.*(\w+)`,
		),
		entry(ActionAbortBuild,
			`abort.*build.*(\d+)`,
			`stop.*build.*(\d+)`,
			`cancel.*build.*(\d+)`,
			`abort.*(\d+)`,
			`stop.*build`,
			`cancel.*build`,
		),
	},
}

var userCatalog = &Catalog{
	Role: RoleUser,
	Entries: []Entry{
		// "builds" and "build status" would otherwise be taken by build.*(\w+).
		entry(ActionShowBuilds,
			`show.*my.*builds`,
			`show.*recent.*builds`,
			`list.*my.*builds`,
			`my.*builds`,
			`builds`,
		),
		entry(ActionCheckStatus,
			`check.*build.*(\d+).*status`,
			`check.*status.*(\d+)`,
			`check.*build.*(\d+)`,
			`status.*of.*(\d+)`,
			`build.*(\d+).*status`,
			`check.*build.*status`,
			`show.*build.*status`,
			`what.*is.*build.*status`,
			`build.*status`,
			`status`,
		),
		entry(ActionCreatePR,
			`create.*pull.*request.*(\w+)`,
			`create.*pr.*(\w+)`,
			`open.*pull.*request.*(\w+)`,
			`create.*pr`,
			`pull.*request`,
		),
		entry(ActionDeployStaging,
			`deploy.*(\w+).*to.*staging`,
			`deploy.*staging.*(\w+)`,
			`push.*(\w+).*to.*staging`,
			`deploy.*(\w+)`,
			`staging.*deploy`,
		),
		entry(ActionBuildBranch,
			`build.*my.*(\w+).*branch`,
			`build.*branch.*(\w+)`,
			`trigger.*build.*(\w+)`,
			`build.*(\w+)`,
			`build.*branch`,
		),
	},
}

// CatalogFor returns the catalog for role, or nil for an unknown role.
func CatalogFor(role Role) *Catalog {
	switch role {
	case RoleAdmin:
		return adminCatalog
	case RoleUser:
		return userCatalog
	default:
		return nil
	}
}
