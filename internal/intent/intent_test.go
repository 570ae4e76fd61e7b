package intent

import (
	"reflect"
	"testing"
)

func TestRecognize(t *testing.T) {
	tests := []struct {
		name       string
		role       Role
		input      string
		wantAction Action
		wantParams map[string]string
	}{
		{
			name:       "approve build by id",
			role:       RoleAdmin,
			input:      "approve build PROD-1001",
			wantAction: ActionApproveBuild,
			wantParams: map[string]string{ParamBuildID: "PROD-1001"},
		},
		{
			name:       "build my feature branch",
			role:       RoleUser,
			input:      "build my feature branch",
			wantAction: ActionBuildBranch,
			wantParams: map[string]string{ParamBranch: "feature"},
		},
		{
			name:       "mixed case and padding",
			role:       RoleUser,
			input:      "  Build My Feature Branch  ",
			wantAction: ActionBuildBranch,
			wantParams: map[string]string{ParamBranch: "feature"},
		},
		{
			name:       "deploy branch to production",
			role:       RoleAdmin,
			input:      "deploy payments to production",
			wantAction: ActionDeployProduction,
			wantParams: map[string]string{ParamTarget: "production", ParamBranch: "payments"},
		},
		{
			name:       "deploy main to production",
			role:       RoleAdmin,
			input:      "deploy main to production",
			wantAction: ActionDeployProduction,
			wantParams: map[string]string{ParamTarget: "production", ParamBranch: "main"},
		},
		{
			name:       "deploy api by name",
			role:       RoleAdmin,
			input:      "deploy api loyalty",
			wantAction: ActionDeployAPI,
			wantParams: map[string]string{ParamAPIName: "loyalty"},
		},
		{
			name:       "abort with reason",
			role:       RoleAdmin,
			input:      "abort build 1002 because tests are flaky",
			wantAction: ActionAbortBuild,
			wantParams: map[string]string{ParamBuildID: "1002", ParamReason: "tests are flaky"},
		},
		{
			name:       "show approvals",
			role:       RoleAdmin,
			input:      "show pending approvals",
			wantAction: ActionShowApprovals,
			wantParams: map[string]string{},
		},
		{
			name:       "deployment report is not a deploy",
			role:       RoleAdmin,
			input:      "generate deployment report",
			wantAction: ActionGenerateReport,
			wantParams: map[string]string{},
		},
		{
			name:       "safety check is not a deploy",
			role:       RoleAdmin,
			input:      "deployment safety check main",
			wantAction: ActionDeploymentAnalysis,
			wantParams: map[string]string{ParamBranch: "main"},
		},
		{
			name:       "orchestrate to staging",
			role:       RoleAdmin,
			input:      "orchestrate deployment release-7 to staging",
			wantAction: ActionDeploymentOrchestration,
			wantParams: map[string]string{ParamTarget: "staging", ParamBranch: "release-7"},
		},
		{
			name:       "show my builds before build branch",
			role:       RoleUser,
			input:      "show my builds",
			wantAction: ActionShowBuilds,
			wantParams: map[string]string{},
		},
		{
			name:       "build status before build branch",
			role:       RoleUser,
			input:      "check build status",
			wantAction: ActionCheckStatus,
			wantParams: map[string]string{},
		},
		{
			name:       "status of a build id",
			role:       RoleUser,
			input:      "check status of build-1004",
			wantAction: ActionCheckStatus,
			wantParams: map[string]string{ParamBuildID: "BUILD-1004"},
		},
		{
			name:       "build id between check build and status",
			role:       RoleUser,
			input:      "check build 1000 status",
			wantAction: ActionCheckStatus,
			wantParams: map[string]string{ParamBuildID: "1000"},
		},
		{
			name:       "deploy to staging",
			role:       RoleUser,
			input:      "deploy checkout to staging",
			wantAction: ActionDeployStaging,
			wantParams: map[string]string{ParamTarget: "staging", ParamBranch: "checkout"},
		},
		{
			name:       "create pull request",
			role:       RoleUser,
			input:      "create pull request for login-page",
			wantAction: ActionCreatePR,
			wantParams: map[string]string{ParamBranch: "login-page"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Recognize(tt.input, tt.role)
			if !ok {
				t.Fatalf("Recognize(%q) not recognized", tt.input)
			}
			if got.Action != tt.wantAction {
				t.Errorf("Action = %s, want %s", got.Action, tt.wantAction)
			}
			if !reflect.DeepEqual(got.Params, tt.wantParams) {
				t.Errorf("Params = %v, want %v", got.Params, tt.wantParams)
			}
		})
	}
}

func TestRecognize_NotRecognized(t *testing.T) {
	tests := []struct {
		name  string
		role  Role
		input string
	}{
		{"gibberish", RoleAdmin, "make me a sandwich"},
		{"empty", RoleUser, "   "},
		{"unknown role", Role("GUEST"), "build my feature branch"},
		{"admin phrase for user", RoleUser, "approve build PROD-1001"},
		{"user phrase for admin", RoleAdmin, "show my builds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := Recognize(tt.input, tt.role); ok {
				t.Errorf("Recognize(%q, %s) = %s, want not recognized", tt.input, tt.role, got.Action)
			}
		})
	}
}

func TestRecognize_EarlierActionWins(t *testing.T) {
	// "deploy rewards api" matches both the rewards entry and the generic api
	// and production entries declared after it.
	text := Normalize("deploy rewards api")
	for _, later := range []Action{ActionDeployAPI, ActionDeployProduction} {
		if !entryMatches(adminCatalog, later, text) {
			t.Fatalf("%s should also match %q for this test to be meaningful", later, text)
		}
	}

	got, ok := Recognize(text, RoleAdmin)
	if !ok || got.Action != ActionDeployRewardsDetails {
		t.Errorf("Recognize(%q) = %s, want %s", text, got.Action, ActionDeployRewardsDetails)
	}
}

func TestRecognize_RoleIsolation(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleUser} {
		catalog := CatalogFor(role)
		other := CatalogFor(RoleUser)
		if role == RoleUser {
			other = CatalogFor(RoleAdmin)
		}

		for _, phrase := range samplePhrases {
			got, ok := Recognize(phrase, role)
			if !ok {
				continue
			}
			if !catalog.Has(got.Action) {
				t.Errorf("%s: %q recognized as %s, not in the role's catalog", role, phrase, got.Action)
			}
			if other.Has(got.Action) {
				t.Errorf("%s: %q recognized as %s from the other catalog", role, phrase, got.Action)
			}
		}
	}
}

var samplePhrases = []string{
	"approve build PROD-1001",
	"deploy payments to production",
	"deploy api loyalty",
	"deploy rewards details",
	"abort build 1001",
	"show approvals",
	"generate report",
	"smart deploy main",
	"analyze deployment main",
	"build my feature branch",
	"create pr hotfix",
	"deploy checkout to staging",
	"show my builds",
	"check build status",
	"status",
}

func TestExtract_Idempotent(t *testing.T) {
	for _, phrase := range samplePhrases {
		text := Normalize(phrase)
		for _, role := range []Role{RoleAdmin, RoleUser} {
			_, p, ok := CatalogFor(role).match(text)
			if !ok {
				continue
			}
			first := Extract(text, p)
			second := Extract(text, p)
			if !reflect.DeepEqual(first, second) {
				t.Errorf("Extract(%q) not idempotent: %v then %v", text, first, second)
			}
		}
	}
}

func TestExtract_ApproveSkipsCommandWords(t *testing.T) {
	got := Extract("approve build for payments", compile(`approve.*build.*for.*(\w+)`))
	if _, ok := got[ParamBuildID]; ok {
		t.Errorf("buildId = %q, want unset", got[ParamBuildID])
	}
	if got[ParamBranch] != "payments" {
		t.Errorf("branch = %q, want payments", got[ParamBranch])
	}
}

func TestExtract_NilPattern(t *testing.T) {
	got := Extract("deploy develop to staging", nil)
	want := map[string]string{ParamTarget: "staging", ParamBranch: "develop"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"ADMIN", RoleAdmin, false},
		{"user", RoleUser, false},
		{" Admin ", RoleAdmin, false},
		{"guest", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCatalogs_DeclareEveryAction(t *testing.T) {
	want := map[Role][]Action{
		RoleAdmin: {
			ActionApproveBuild, ActionDeployProduction, ActionDeployAPI,
			ActionDeployRewardsDetails, ActionAbortBuild, ActionShowApprovals,
			ActionGenerateReport, ActionDeploymentOrchestration, ActionDeploymentAnalysis,
		},
		RoleUser: {
			ActionBuildBranch, ActionCreatePR, ActionDeployStaging,
			ActionShowBuilds, ActionCheckStatus,
		},
	}

	for role, actions := range want {
		catalog := CatalogFor(role)
		if len(catalog.Entries) != len(actions) {
			t.Errorf("%s catalog has %d entries, want %d", role, len(catalog.Entries), len(actions))
		}
		for _, a := range actions {
			if !catalog.Has(a) {
				t.Errorf("%s catalog missing %s", role, a)
			}
		}
	}
}

func entryMatches(c *Catalog, action Action, text string) bool {
	for _, e := range c.Entries {
		if e.Action != action {
			continue
		}
		for _, p := range e.Patterns {
			if p.Match(text) {
				return true
			}
		}
	}
	return false
}
