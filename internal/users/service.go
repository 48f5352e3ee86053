package users

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort defines data access for the member directory.
type RepositoryPort interface {
	ListMembers(ctx context.Context) ([]Member, error)
	MemberByID(ctx context.Context, principalID uuid.UUID) (Member, error)
	DepartmentsByIDs(ctx context.Context, ids []uuid.UUID) ([]Department, error)
}

// Directory is a member listing joined with resolved department names.
type Directory struct {
	Members     []Member
	Departments map[uuid.UUID]string
}

// Service handles member directory reads.
type Service struct{}

// NewService builds a Service instance.
func NewService() *Service {
	return &Service{}
}

// Directory lists members and resolves the departments they reference. The
// department id set is derived from the member rows, which are already
// tenant-scoped, and is never fetched independently of that parent result.
func (s *Service) Directory(ctx context.Context, repo RepositoryPort) (Directory, error) {
	members, err := repo.ListMembers(ctx)
	if err != nil {
		return Directory{}, err
	}

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, m := range members {
		for _, id := range m.DepartmentIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	departments, err := repo.DepartmentsByIDs(ctx, ids)
	if err != nil {
		return Directory{}, err
	}
	names := make(map[uuid.UUID]string, len(departments))
	for _, d := range departments {
		names[d.ID] = d.Name
	}
	return Directory{Members: members, Departments: names}, nil
}
