package auth

type Scope int

const (
	ScopeRead Scope = iota
	ScopeCreate
	ScopeDraft
	ScopeUpdate
	ScopeDelete
	ScopeUndelete
	ScopeMedia
)

var scopeName = map[Scope]string{
	ScopeCreate:   "create",
	ScopeDraft:    "draft",
	ScopeUpdate:   "update",
	ScopeDelete:   "delete",
	ScopeUndelete: "undelete",
	ScopeMedia:    "media",
}

func (scope Scope) String() string {
	return scopeName[scope]
}
