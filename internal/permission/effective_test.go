package permission_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smuchara/pollstack/internal/permission"
)

func TestPermission(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Permission Suite")
}

var _ = Describe("EffectiveSet", func() {
	Context("when the user only has group permissions", func() {
		It("should return the group union, sorted and deduplicated", func() {
			result := permission.EffectiveSet(
				[]string{"manage_polls", "view_results", "manage_polls"},
				nil, nil)

			Expect(result).To(Equal([]string{"manage_polls", "view_results"}))
		})
	})

	Context("when direct grants add to group permissions", func() {
		It("should include the granted names in the result", func() {
			result := permission.EffectiveSet(
				[]string{"view_results"},
				[]string{"invite_voters"},
				nil)

			Expect(result).To(Equal([]string{"invite_voters", "view_results"}))
		})
	})

	Context("when a revoke targets a group-derived permission", func() {
		It("should remove the permission from the result", func() {
			result := permission.EffectiveSet(
				[]string{"manage_polls", "view_results"},
				nil,
				[]string{"manage_polls"})

			Expect(result).To(Equal([]string{"view_results"}))
		})
	})

	Context("when a grant and a revoke name the same permission", func() {
		It("should let the revoke win", func() {
			result := permission.EffectiveSet(
				nil,
				[]string{"invite_voters"},
				[]string{"invite_voters"})

			Expect(result).To(BeEmpty())
		})
	})

	Context("when a revoke names a permission the user never had", func() {
		It("should be a no-op", func() {
			result := permission.EffectiveSet(
				[]string{"view_results"},
				nil,
				[]string{"manage_permissions"})

			Expect(result).To(Equal([]string{"view_results"}))
		})
	})

	Context("when all inputs are empty", func() {
		It("should return an empty, non-nil slice", func() {
			result := permission.EffectiveSet(nil, nil, nil)

			Expect(result).ToNot(BeNil())
			Expect(result).To(BeEmpty())
		})
	})
})

var _ = Describe("SplitDirect", func() {
	It("should partition rows by the granted flag", func() {
		grants, revokes := permission.SplitDirect([]permission.DirectPermission{
			{Name: "invite_voters", Granted: true},
			{Name: "manage_polls", Granted: false},
			{Name: "view_results", Granted: true},
		})

		Expect(grants).To(Equal([]string{"invite_voters", "view_results"}))
		Expect(revokes).To(Equal([]string{"manage_polls"}))
	})
})
