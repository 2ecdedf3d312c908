package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/smuchara/pollstack/internal/user"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock UserRepository for testing
type mockUserRepository struct {
	usersByEmail  map[string]*user.User
	usersByID     map[int64]*user.User
	returnError   bool
	errorToReturn error
}

func newMockUserRepository() *mockUserRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.DefaultCost)

	users := []*user.User{
		{ID: 1, Email: "voter@example.com", PasswordHash: string(hashedPassword), Role: user.RoleUser, IsActive: true},
		{ID: 2, Email: "admin@example.com", PasswordHash: string(hashedPassword), Role: user.RoleAdmin, IsActive: true},
		{ID: 3, Email: "inactive@example.com", PasswordHash: string(hashedPassword), Role: user.RoleUser, IsActive: false},
	}

	m := &mockUserRepository{
		usersByEmail: make(map[string]*user.User),
		usersByID:    make(map[int64]*user.User),
	}
	for _, u := range users {
		m.usersByEmail[u.Email] = u
		m.usersByID[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) GetUserByEmail(email string) (*user.User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	if u, exists := m.usersByEmail[email]; exists {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (m *mockUserRepository) GetUserByID(userID int64) (*user.User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	if u, exists := m.usersByID[userID]; exists {
		return u, nil
	}
	return nil, errors.New("user not found")
}

type mockPermissionSource struct {
	permissions map[int64][]string
}

func (m *mockPermissionSource) EffectivePermissions(u *user.User) ([]string, error) {
	return m.permissions[u.ID], nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service       *Service
		mockRepo      *mockUserRepository
		mockPerms     *mockPermissionSource
		tokenGen      *JWTTokenGenerator
		accessSecret  = "test-access-secret"
		refreshSecret = "test-refresh-secret"
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockUserRepository()
		mockPerms = &mockPermissionSource{permissions: map[int64][]string{
			1: nil,
			2: {PermManagePolls, PermViewResults},
		}}
		tokenGen = NewJWTTokenGenerator(accessSecret, refreshSecret, 15*time.Minute, 24*time.Hour)
		service = NewService(mockRepo, mockPerms, tokenGen, bcrypt.DefaultCost)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("with valid credentials", func() {
			ginkgo.It("should return access and refresh tokens", func() {
				tokens, err := service.Authenticate(LoginDTO{
					Email:    "voter@example.com",
					Password: "correct_password",
				})

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.RefreshToken).ToNot(gomega.BeEmpty())
			})

			ginkgo.It("should embed the user identity in the access token", func() {
				tokens, err := service.Authenticate(LoginDTO{
					Email:    "admin@example.com",
					Password: "correct_password",
				})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				claims, err := service.ValidateAccessToken(tokens.AccessToken)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(claims.UserID).To(gomega.Equal("2"))
				gomega.Expect(claims.Email).To(gomega.Equal("admin@example.com"))
				gomega.Expect(claims.Role).To(gomega.Equal(string(user.RoleAdmin)))
			})
		})

		ginkgo.Context("with a wrong password", func() {
			ginkgo.It("should return invalid credentials", func() {
				_, err := service.Authenticate(LoginDTO{
					Email:    "voter@example.com",
					Password: "wrong_password",
				})

				gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
			})
		})

		ginkgo.Context("with an unknown email", func() {
			ginkgo.It("should return invalid credentials, not a not-found error", func() {
				_, err := service.Authenticate(LoginDTO{
					Email:    "nobody@example.com",
					Password: "correct_password",
				})

				gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
			})
		})

		ginkgo.Context("with a deactivated account", func() {
			ginkgo.It("should reject the login", func() {
				_, err := service.Authenticate(LoginDTO{
					Email:    "inactive@example.com",
					Password: "correct_password",
				})

				gomega.Expect(err).To(gomega.Equal(ErrUserInactive))
			})
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("should issue fresh tokens from a valid refresh token", func() {
			tokens, err := service.Authenticate(LoginDTO{
				Email:    "voter@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			refreshed, err := service.RefreshTokens(tokens.RefreshToken)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(refreshed.AccessToken).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("should reject an access token used as a refresh token", func() {
			tokens, err := service.Authenticate(LoginDTO{
				Email:    "voter@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.RefreshTokens(tokens.AccessToken)

			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})

		ginkgo.It("should reject garbage tokens", func() {
			_, err := service.RefreshTokens("not-a-jwt")

			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})
	})

	ginkgo.Describe("ValidateAccessToken", func() {
		ginkgo.It("should reject expired tokens with the expiry sentinel", func() {
			shortGen := &JWTTokenGenerator{
				AccessTokenSecret:  []byte(accessSecret),
				RefreshTokenSecret: []byte(refreshSecret),
				AccessTokenTTL:     -time.Minute,
				RefreshTokenTTL:    24 * time.Hour,
			}
			u := mockRepo.usersByID[1]
			expired, err := shortGen.GenerateAccessToken(u)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(expired)

			gomega.Expect(err).To(gomega.Equal(ErrTokenExpired))
		})
	})

	ginkgo.Describe("GetAuthenticatedUser", func() {
		ginkgo.It("should attach the effective permission set", func() {
			authed, err := service.GetAuthenticatedUser(2)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(authed.Permissions).To(gomega.ConsistOf(PermManagePolls, PermViewResults))
			gomega.Expect(authed.HasPermission(PermManagePolls)).To(gomega.BeTrue())
			gomega.Expect(authed.HasPermission(PermManagePermissions)).To(gomega.BeFalse())
		})

		ginkgo.It("should reject inactive users", func() {
			_, err := service.GetAuthenticatedUser(3)

			gomega.Expect(err).To(gomega.Equal(ErrUserInactive))
		})
	})
})
