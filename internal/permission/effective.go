package permission

import (
	"sort"
)

// EffectiveSet computes a user's effective permission names from three input
// collections: permissions inherited from assigned groups, explicit direct
// grants, and explicit direct revokes. Grants add on top of the group union;
// revokes always win, including over a grant of the same name. The result is
// deduplicated and sorted. Pure function, no storage involved.
func EffectiveSet(groupPerms, grants, revokes []string) []string {
	set := make(map[string]struct{}, len(groupPerms)+len(grants))
	for _, name := range groupPerms {
		set[name] = struct{}{}
	}
	for _, name := range grants {
		set[name] = struct{}{}
	}
	for _, name := range revokes {
		delete(set, name)
	}

	result := make([]string, 0, len(set))
	for name := range set {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// SplitDirect partitions the direct-permission pivot rows into grant and revoke
// name lists for EffectiveSet.
func SplitDirect(direct []DirectPermission) (grants, revokes []string) {
	for _, dp := range direct {
		if dp.Granted {
			grants = append(grants, dp.Name)
		} else {
			revokes = append(revokes, dp.Name)
		}
	}
	return grants, revokes
}
