package scope

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
)

// Action is an (object, verb) pair checked against the role policy.
type Action struct {
	Object string
	Verb   string
}

func (a Action) String() string {
	return a.Object + ":" + a.Verb
}

// Actions guarded by role.
var (
	DeleteOrganization = Action{"organization", "delete"}
	CreateProject      = Action{"project", "create"}
	DeleteProject      = Action{"project", "delete"}
	ManageMembers      = Action{"member", "manage"}
	WriteSchema        = Action{"schema", "write"}
	WriteContent       = Action{"content", "write"}
	WriteEntries       = Action{"entry", "write"}
	ReadProject        = Action{"project", "read"}
)

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// DefaultPolicy grants every member read and write access to project
// content, admins project deletion and member management, and owners
// organization deletion. Owners inherit admin and admins inherit member.
const DefaultPolicy = `
g, role:owner, role:admin
g, role:admin, role:member
p, role:member, project, read
p, role:member, project, create
p, role:member, schema, write
p, role:member, content, write
p, role:member, entry, write
p, role:admin, project, delete
p, role:admin, member, manage
p, role:owner, organization, delete
`

// Subject returns the policy subject for a membership role.
func Subject(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = "anonymous"
	}
	return "role:" + role
}

func newEnforcer(policy string) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("loading policy model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m, stringadapter.NewAdapter(policy))
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	return e, nil
}
