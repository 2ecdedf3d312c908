package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smuchara/pollstack/internal/auth"
	"github.com/smuchara/pollstack/internal/transport/middleware"
	"github.com/smuchara/pollstack/internal/user"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var _ = Describe("RequirePermissions", func() {
	var nextCalled bool

	guard := middleware.RequirePermissions(auth.PermAssignProxies, auth.PermManagePolls)

	serve := func(u *auth.AuthenticatedUser) *httptest.ResponseRecorder {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nextCalled = true
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodPost, "/polls/1/proxies", nil)
		if u != nil {
			req = req.WithContext(auth.ContextWithUser(req.Context(), u))
		}

		rec := httptest.NewRecorder()
		guard(next).ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		nextCalled = false
	})

	It("should reject requests without an authenticated user", func() {
		// When
		rec := serve(nil)

		// Then
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(nextCalled).To(BeFalse())
	})

	It("should reject users holding none of the listed permissions", func() {
		// Given
		u := &auth.AuthenticatedUser{
			User:        &user.User{ID: 1, Role: user.RoleUser},
			Permissions: []string{auth.PermViewResults},
		}

		// When
		rec := serve(u)

		// Then
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(nextCalled).To(BeFalse())
	})

	It("should pass users holding any listed permission", func() {
		// Given
		u := &auth.AuthenticatedUser{
			User:        &user.User{ID: 2, Role: user.RoleAdmin},
			Permissions: []string{auth.PermAssignProxies},
		}

		// When
		rec := serve(u)

		// Then
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(nextCalled).To(BeTrue())
	})

	It("should always pass super admins", func() {
		// Given
		u := &auth.AuthenticatedUser{
			User: &user.User{ID: 3, Role: user.RoleSuperAdmin},
		}

		// When
		rec := serve(u)

		// Then
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(nextCalled).To(BeTrue())
	})
})
