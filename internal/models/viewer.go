package models

// ViewerContext identifies the acting user for a single call. It is passed
// explicitly into every filter, notification and mutation operation instead
// of being read from ambient state.
type ViewerContext struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// Privileged reports whether the viewer sees all tasks regardless of
// assignment or authorship.
func (v ViewerContext) Privileged() bool {
	return IsPrivilegedRole(v.Role)
}
