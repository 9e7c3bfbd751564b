package types

import "context"

// Cupboard is the storage boundary. Callers attach to a backend, use the
// table accessors directly for single-statement work, and run multi-step
// writes through Update so they commit or roll back as one unit.
type Cupboard interface {
	Tables

	// Attach connects to the backend described by config and applies
	// pending migrations. Returns ErrAlreadyAttached if already attached.
	Attach(ctx context.Context, config Config) error

	// Detach releases backend resources. Idempotent. After Detach, table
	// operations return ErrCupboardDetached.
	Detach() error

	// Update runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, including when ctx is cancelled.
	Update(ctx context.Context, fn func(Tables) error) error
}

// Archiver moves the whole store to and from a directory of JSONL files.
type Archiver interface {
	Export(ctx context.Context, dir string) error
	Import(ctx context.Context, dir string) error
}

// Tables groups the per-entity accessors. Inside Update they are bound to the
// transaction; on a Cupboard they run against the database directly.
type Tables interface {
	Organizations() OrganizationTable
	Projects() ProjectTable
	Memberships() MembershipTable
	ContentTypes() ContentTypeTable
	ContentFields() ContentFieldTable
	ContentItems() ContentItemTable
	Posts() PostTable
	Blogs() BlogTable
}

// OrganizationTable persists organizations. Delete cascades to everything
// the organization owns.
type OrganizationTable interface {
	Create(ctx context.Context, org *Organization) error
	Get(ctx context.Context, id string) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	ListForUser(ctx context.Context, userID string) ([]*Organization, error)
	Delete(ctx context.Context, id string) error
}

// ProjectTable persists projects. Delete cascades to the project's content.
type ProjectTable interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	GetBySlug(ctx context.Context, slug string) (*Project, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*Project, error)
	Delete(ctx context.Context, id string) error
}

// MembershipTable persists memberships.
type MembershipTable interface {
	Create(ctx context.Context, m *Membership) error
	Get(ctx context.Context, id string) (*Membership, error)
	Find(ctx context.Context, orgID, userID string) (*Membership, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*Membership, error)
	UpdateRole(ctx context.Context, id, role string) error
	Delete(ctx context.Context, id string) error
	CountRole(ctx context.Context, orgID, role string) (int, error)
}

// ContentTypeTable persists content type metadata. Get does not load
// fields. Update writes name, description, version and updatedAt only when
// the stored version equals expected; otherwise it returns ErrStaleVersion.
// A zero expected version skips the check.
type ContentTypeTable interface {
	Create(ctx context.Context, ct *ContentType) error
	Get(ctx context.Context, id string) (*ContentType, error)
	GetBySlug(ctx context.Context, projectID, slug string) (*ContentType, error)
	SlugTaken(ctx context.Context, projectID, slug string) (bool, error)
	SlugTakenAnywhere(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, projectID string) ([]*ContentType, error)
	Update(ctx context.Context, ct *ContentType, expected int64) error
	Delete(ctx context.Context, id string) error
}

// ContentFieldTable persists a content type's fields.
type ContentFieldTable interface {
	List(ctx context.Context, typeID string) ([]*ContentField, error)
	Upsert(ctx context.Context, f *ContentField) error
	Delete(ctx context.Context, typeID, fieldID string) error
}

// ContentItemTable persists items. It reads and writes RawData only;
// decoding Data is the caller's concern. Update follows the same version
// rule as ContentTypeTable.Update.
type ContentItemTable interface {
	Create(ctx context.Context, item *ContentItem) error
	Get(ctx context.Context, id string) (*ContentItem, error)
	List(ctx context.Context, typeID string, publishedOnly bool) ([]*ContentItem, error)
	Update(ctx context.Context, item *ContentItem, expected int64) error
	Delete(ctx context.Context, id string) error
}

// PostTable persists posts. List returns one page and the total match count.
type PostTable interface {
	Create(ctx context.Context, p *Post) error
	Get(ctx context.Context, id string) (*Post, error)
	GetBySlug(ctx context.Context, projectID, slug string) (*Post, error)
	SlugTaken(ctx context.Context, projectID, slug, excludeID string) (bool, error)
	List(ctx context.Context, f EntryFilter) ([]*Post, int, error)
	Update(ctx context.Context, p *Post) error
	Delete(ctx context.Context, id string) error
}

// BlogTable persists blogs.
type BlogTable interface {
	Create(ctx context.Context, b *Blog) error
	Get(ctx context.Context, id string) (*Blog, error)
	GetBySlug(ctx context.Context, projectID, slug string) (*Blog, error)
	SlugTaken(ctx context.Context, projectID, slug, excludeID string) (bool, error)
	List(ctx context.Context, f EntryFilter) ([]*Blog, int, error)
	Update(ctx context.Context, b *Blog) error
	Delete(ctx context.Context, id string) error
}
