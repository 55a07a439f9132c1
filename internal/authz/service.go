// ABOUTME: AuthorizationService — composes the resolution engine with the
// ABOUTME: role-assignment store; the only authz entry point for the API layer.
package authz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/complyhub/complyhub/internal/hierarchy"
)

// Ref is a raw single-level reference to a hierarchy element, as it arrives
// in a URL path: a bare numeric id plus the level it names. The store resolves
// it to a full compound id by looking up the parent chain.
type Ref struct {
	Level hierarchy.Level
	ID    int64
}

// StoredAssignment is one role-assignment row as persisted: the element id
// plus the raw (name, level) role encoding, decoded against the catalog at
// resolution time.
type StoredAssignment struct {
	ID        hierarchy.ID
	RoleName  string
	RoleLevel hierarchy.Level
}

// UserAssignment is a StoredAssignment together with the user holding it.
type UserAssignment struct {
	UserID uuid.UUID
	StoredAssignment
}

// AssignmentStore is the persistence collaborator the service consumes.
// *store.Store implements it; tests substitute an in-memory fake.
type AssignmentStore interface {
	// LoadAssignments returns every assignment of userID that can apply to
	// target: the target itself, its ancestors, and wildcard grants.
	LoadAssignments(ctx context.Context, userID uuid.UUID, target hierarchy.ID) ([]StoredAssignment, error)

	// LoadAllAssignments returns the user's complete assignment set.
	LoadAllAssignments(ctx context.Context, userID uuid.UUID) ([]StoredAssignment, error)

	// InsertAssignment stores a role grant, replacing any existing assignment
	// at exactly (userID, id) in the same transaction.
	InsertAssignment(ctx context.Context, userID uuid.UUID, id hierarchy.ID, roleName string, roleLevel hierarchy.Level) error

	// DeleteAssignment removes the assignment at (userID, id), reporting
	// whether a row matched.
	DeleteAssignment(ctx context.Context, userID uuid.UUID, id hierarchy.ID) (bool, error)

	// ResolveAncestors maps a raw single-level reference to its full compound
	// id. Returns the invalid zero id, not an error, when ref does not exist.
	ResolveAncestors(ctx context.Context, ref Ref) (hierarchy.ID, error)

	// ListAssignmentsAt returns the assignments of all users at exactly id.
	ListAssignmentsAt(ctx context.Context, id hierarchy.ID) ([]UserAssignment, error)

	// ListAssignmentsCovering returns the assignments of all users at id, at
	// any of its ancestors, or at wildcard scope.
	ListAssignmentsCovering(ctx context.Context, id hierarchy.ID) ([]UserAssignment, error)
}

// Service is the authorization boundary exposed to the API layer. The engine
// underneath is pure; all blocking happens in the store.
type Service struct {
	store AssignmentStore
}

// NewService creates a Service backed by s.
func NewService(s AssignmentStore) *Service {
	return &Service{store: s}
}

// Resolve maps a raw reference to its compound id. The returned id is invalid
// when the referenced element does not exist; only storage failures error.
func (s *Service) Resolve(ctx context.Context, ref Ref) (hierarchy.ID, error) {
	id, err := s.store.ResolveAncestors(ctx, ref)
	if err != nil {
		return hierarchy.ID{}, fmt.Errorf("resolve %s %d: %w", ref.Level, ref.ID, err)
	}
	return id, nil
}

// CheckPermission resolves the user's effective role at id and returns it if
// it satisfies checker, nil otherwise. Fail-closed: an invalid target id
// yields nil with a warning, never an error.
func (s *Service) CheckPermission(ctx context.Context, userID uuid.UUID, id hierarchy.ID, checker Checker) (*EffectiveRole, error) {
	e, err := s.GetEffectiveRole(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !e.Satisfies(checker) {
		return nil, nil
	}
	return &e, nil
}

// GetEffectiveRole resolves the user's effective role at id. Never nil-like:
// an invalid target id yields the empty, non-superuser result.
func (s *Service) GetEffectiveRole(ctx context.Context, userID uuid.UUID, id hierarchy.ID) (EffectiveRole, error) {
	if !id.IsValid() {
		slog.WarnContext(ctx, "effective role requested for unresolvable element",
			"user_id", userID)
		return EffectiveRole{ID: id}, nil
	}
	rows, err := s.store.LoadAssignments(ctx, userID, id)
	if err != nil {
		return EffectiveRole{}, fmt.Errorf("load assignments: %w", err)
	}
	return ResolveEffective(id, s.decode(ctx, rows)), nil
}

// ResolvePermissions runs batch resolution over the user's complete
// assignment set against checker. List endpoints use the result to build
// their query filters without per-row checks.
func (s *Service) ResolvePermissions(ctx context.Context, userID uuid.UUID, checker Checker) (HierarchyPermissions, error) {
	rows, err := s.store.LoadAllAssignments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load all assignments: %w", err)
	}
	return ResolveHierarchy(s.decode(ctx, rows), checker), nil
}

// IsSuperuser reports whether the user holds the wildcard admin grant.
func (s *Service) IsSuperuser(ctx context.Context, userID uuid.UUID) (bool, error) {
	p, err := s.ResolvePermissions(ctx, userID, Checker{})
	if err != nil {
		return false, err
	}
	return p.Superuser(), nil
}

// AssignRole grants role to the user at id, replacing any existing assignment
// at exactly that element (last write wins, no merging).
func (s *Service) AssignRole(ctx context.Context, userID uuid.UUID, role Role, id hierarchy.ID) error {
	if err := s.store.InsertAssignment(ctx, userID, id, role.Name, role.Level); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// RemoveAssignment deletes the user's assignment at id, reporting whether one
// existed.
func (s *Service) RemoveAssignment(ctx context.Context, userID uuid.UUID, id hierarchy.ID) (bool, error) {
	removed, err := s.store.DeleteAssignment(ctx, userID, id)
	if err != nil {
		return false, fmt.Errorf("remove assignment: %w", err)
	}
	return removed, nil
}

// ListUsersWithRole returns the users explicitly holding role at exactly id.
// Inherited access does not count here — see ListUsers for that.
func (s *Service) ListUsersWithRole(ctx context.Context, role Role, id hierarchy.ID) ([]uuid.UUID, error) {
	rows, err := s.store.ListAssignmentsAt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list users with role: %w", err)
	}
	var users []uuid.UUID
	for _, row := range rows {
		if row.RoleName == role.Name && row.RoleLevel == role.Level {
			users = append(users, row.UserID)
		}
	}
	return users, nil
}

// ListUsers returns every user with access to id and the roles that access
// derives from, including roles assigned at ancestors or wildcard scope.
func (s *Service) ListUsers(ctx context.Context, id hierarchy.ID) (map[uuid.UUID][]Role, error) {
	rows, err := s.store.ListAssignmentsCovering(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make(map[uuid.UUID][]Role)
	for _, row := range rows {
		role, ok := RoleByName(row.RoleLevel, row.RoleName)
		if !ok {
			slog.ErrorContext(ctx, "unrecognized role encoding in assignment",
				"user_id", row.UserID, "element", row.ID.String(),
				"role_name", row.RoleName, "role_level", row.RoleLevel.String())
			continue
		}
		users[row.UserID] = append(users[row.UserID], role)
	}
	return users, nil
}

// decode maps stored assignments to catalog roles. A row with an
// unrecognized (name, level) encoding grants nothing: it is logged with its
// identity and dropped, so one corrupt row cannot deny access system-wide.
func (s *Service) decode(ctx context.Context, rows []StoredAssignment) []Assignment {
	out := make([]Assignment, 0, len(rows))
	for _, row := range rows {
		role, ok := RoleByName(row.RoleLevel, row.RoleName)
		if !ok {
			slog.ErrorContext(ctx, "unrecognized role encoding in assignment",
				"element", row.ID.String(),
				"role_name", row.RoleName, "role_level", row.RoleLevel.String())
			continue
		}
		out = append(out, Assignment{ID: row.ID, Role: role})
	}
	return out
}
