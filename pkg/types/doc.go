// Package types defines the pantry entities (organizations, projects,
// memberships, content types, content items, posts, blogs), the Cupboard and
// table interfaces a storage backend implements, and the error taxonomy shared
// by every component.
package types
