package permission_test

import (
	"errors"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smuchara/pollstack/internal"
	"github.com/smuchara/pollstack/internal/permission"
	"github.com/smuchara/pollstack/internal/user"
)

// Mock repository for testing
type mockPermissionRepository struct {
	users       map[int64]*user.User
	permissions map[int64]*permission.Permission
	groups      map[int64]bool
	groupPerms  map[int64][]string
	direct      map[int64][]permission.DirectPermission
	allNames    []string
	userGroups  map[int64][]int64

	listGroupError error
	replaceError   error
	upsertError    error
	roleError      error
}

func newMockPermissionRepository() *mockPermissionRepository {
	return &mockPermissionRepository{
		users:       make(map[int64]*user.User),
		permissions: make(map[int64]*permission.Permission),
		groups:      make(map[int64]bool),
		groupPerms:  make(map[int64][]string),
		direct:      make(map[int64][]permission.DirectPermission),
		userGroups:  make(map[int64][]int64),
	}
}

func (m *mockPermissionRepository) GetUserByID(userID int64) (*user.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (m *mockPermissionRepository) UpdateUserRole(userID int64, role user.Role) error {
	if m.roleError != nil {
		return m.roleError
	}
	if u, ok := m.users[userID]; ok {
		u.Role = role
	}
	return nil
}

func (m *mockPermissionRepository) ListAllPermissionNames() ([]string, error) {
	return m.allNames, nil
}

func (m *mockPermissionRepository) ListGroupPermissionNames(userID int64) ([]string, error) {
	if m.listGroupError != nil {
		return nil, m.listGroupError
	}
	return m.groupPerms[userID], nil
}

func (m *mockPermissionRepository) ListDirectPermissions(userID int64) ([]permission.DirectPermission, error) {
	return m.direct[userID], nil
}

func (m *mockPermissionRepository) GetPermissionByID(id int64) (*permission.Permission, error) {
	p, ok := m.permissions[id]
	if !ok {
		return nil, errors.New("permission not found")
	}
	return p, nil
}

func (m *mockPermissionRepository) CountGroupsByIDs(ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		if m.groups[id] {
			count++
		}
	}
	return count, nil
}

func (m *mockPermissionRepository) ReplaceUserGroups(userID int64, groupIDs []int64) error {
	if m.replaceError != nil {
		return m.replaceError
	}
	m.userGroups[userID] = groupIDs
	return nil
}

func (m *mockPermissionRepository) UpsertDirectPermission(userID, permissionID int64, granted bool) error {
	if m.upsertError != nil {
		return m.upsertError
	}
	name := m.permissions[permissionID].Name
	rows := m.direct[userID]
	for i, row := range rows {
		if row.Name == name {
			rows[i].Granted = granted
			m.direct[userID] = rows
			return nil
		}
	}
	m.direct[userID] = append(rows, permission.DirectPermission{Name: name, Granted: granted})
	return nil
}

var _ = Describe("PermissionService", func() {
	var (
		svc      *permission.Service
		mockRepo *mockPermissionRepository
		logger   *slog.Logger
	)

	BeforeEach(func() {
		mockRepo = newMockPermissionRepository()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = permission.NewService(mockRepo, logger)
	})

	Describe("EffectivePermissions", func() {
		Context("when the user is a super admin", func() {
			It("should return every permission in the catalogue", func() {
				// Given
				mockRepo.allNames = []string{"invite_voters", "manage_polls", "view_results"}
				u := &user.User{ID: 1, Role: user.RoleSuperAdmin}

				// When
				perms, err := svc.EffectivePermissions(u)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(perms).To(Equal([]string{"invite_voters", "manage_polls", "view_results"}))
			})
		})

		Context("when the user has groups, grants and revokes", func() {
			It("should overlay direct permissions on the group union", func() {
				// Given
				u := &user.User{ID: 2, Role: user.RoleAdmin}
				mockRepo.groupPerms[2] = []string{"manage_polls", "view_results"}
				mockRepo.direct[2] = []permission.DirectPermission{
					{Name: "invite_voters", Granted: true},
					{Name: "manage_polls", Granted: false},
				}

				// When
				perms, err := svc.EffectivePermissions(u)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(perms).To(Equal([]string{"invite_voters", "view_results"}))
			})
		})

		Context("when the repository fails", func() {
			It("should return the repository error", func() {
				// Given
				mockRepo.listGroupError = errors.New("db down")
				u := &user.User{ID: 3, Role: user.RoleUser}

				// When
				perms, err := svc.EffectivePermissions(u)

				// Then
				Expect(err).To(HaveOccurred())
				Expect(perms).To(BeNil())
			})
		})
	})

	Describe("AssignPermissionGroups", func() {
		Context("when a plain user gains permissions through a group", func() {
			It("should promote the user to admin", func() {
				// Given
				u := &user.User{ID: 10, Role: user.RoleUser}
				mockRepo.users[10] = u
				mockRepo.groups[5] = true
				mockRepo.groupPerms[10] = []string{"manage_polls"}

				// When
				perms, err := svc.AssignPermissionGroups(10, []int64{5})

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(perms).To(ContainElement("manage_polls"))
				Expect(u.Role).To(Equal(user.RoleAdmin))
			})
		})

		Context("when an admin loses their last permission", func() {
			It("should demote the user back to plain user", func() {
				// Given
				u := &user.User{ID: 11, Role: user.RoleAdmin}
				mockRepo.users[11] = u

				// When
				perms, err := svc.AssignPermissionGroups(11, nil)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(perms).To(BeEmpty())
				Expect(u.Role).To(Equal(user.RoleUser))
			})
		})

		Context("when the user is a client super admin", func() {
			It("should never change the role", func() {
				// Given
				u := &user.User{ID: 12, Role: user.RoleClientSuperAdmin}
				mockRepo.users[12] = u

				// When
				_, err := svc.AssignPermissionGroups(12, nil)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(u.Role).To(Equal(user.RoleClientSuperAdmin))
			})
		})

		Context("when a group id does not exist", func() {
			It("should reject the assignment", func() {
				// Given
				mockRepo.users[13] = &user.User{ID: 13, Role: user.RoleUser}

				// When
				perms, err := svc.AssignPermissionGroups(13, []int64{99})

				// Then
				Expect(err).To(Equal(internal.ErrGroupNotFound))
				Expect(perms).To(BeNil())
			})
		})

		Context("when the user does not exist", func() {
			It("should return user not found", func() {
				// When
				_, err := svc.AssignPermissionGroups(404, []int64{1})

				// Then
				Expect(err).To(Equal(internal.ErrUserNotFound))
			})
		})
	})

	Describe("GrantPermission", func() {
		Context("when granting a permission to a plain user", func() {
			It("should record the grant and promote the user", func() {
				// Given
				u := &user.User{ID: 20, Role: user.RoleUser}
				mockRepo.users[20] = u
				mockRepo.permissions[7] = &permission.Permission{ID: 7, Name: "invite_voters"}

				// When
				perms, err := svc.GrantPermission(20, 7)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(perms).To(Equal([]string{"invite_voters"}))
				Expect(u.Role).To(Equal(user.RoleAdmin))
			})
		})

		Context("when the permission does not exist", func() {
			It("should return permission not found", func() {
				// Given
				mockRepo.users[21] = &user.User{ID: 21, Role: user.RoleUser}

				// When
				_, err := svc.GrantPermission(21, 999)

				// Then
				Expect(err).To(Equal(internal.ErrPermissionNotFound))
			})
		})
	})

	Describe("RevokePermission", func() {
		Context("when revoking a group-derived permission", func() {
			It("should remove it from the effective set", func() {
				// Given
				u := &user.User{ID: 30, Role: user.RoleAdmin}
				mockRepo.users[30] = u
				mockRepo.permissions[8] = &permission.Permission{ID: 8, Name: "manage_polls"}
				mockRepo.groupPerms[30] = []string{"manage_polls", "view_results"}

				// When
				perms, err := svc.RevokePermission(30, 8)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(perms).To(Equal([]string{"view_results"}))
				Expect(u.Role).To(Equal(user.RoleAdmin))
			})
		})

		Context("when the revoke empties the effective set of an admin", func() {
			It("should demote the user", func() {
				// Given
				u := &user.User{ID: 31, Role: user.RoleAdmin}
				mockRepo.users[31] = u
				mockRepo.permissions[9] = &permission.Permission{ID: 9, Name: "view_results"}
				mockRepo.groupPerms[31] = []string{"view_results"}

				// When
				perms, err := svc.RevokePermission(31, 9)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(perms).To(BeEmpty())
				Expect(u.Role).To(Equal(user.RoleUser))
			})
		})
	})

	Describe("HasPermission", func() {
		It("should always pass for super admins", func() {
			// Given
			u := &user.User{ID: 40, Role: user.RoleSuperAdmin}

			// When
			ok, err := svc.HasPermission(u, "anything_at_all")

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("should check the effective set for everyone else", func() {
			// Given
			u := &user.User{ID: 41, Role: user.RoleAdmin}
			mockRepo.groupPerms[41] = []string{"view_results"}

			// When
			ok, err := svc.HasPermission(u, "manage_polls")

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
})
