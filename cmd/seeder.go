package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/smuchara/pollstack/internal/auth"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			clearSeedData(db)
		}

		seedPermissions(db)
		seedGroups(db)
		orgID := seedOrganization(db, "Acme Corp", "acme")
		engID := seedDepartment(db, orgID, "Engineering", "engineering")
		opsID := seedDepartment(db, orgID, "Operations", "operations")

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)

		rootID := seedUser(db, "Root", "root@pollstack.io", string(hash), "super_admin", nil)
		adminID := seedUser(db, "Acme Admin", "admin@acme.io", string(hash), "client_super_admin", &orgID)
		managerID := seedUser(db, "Poll Manager", "manager@acme.io", string(hash), "user", &orgID)
		voter1ID := seedUser(db, "Voter One", "voter1@acme.io", string(hash), "user", &orgID)
		voter2ID := seedUser(db, "Voter Two", "voter2@acme.io", string(hash), "user", &orgID)

		addGroupMember(db, managerID, "poll_managers")
		addDepartmentMember(db, engID, voter1ID)
		addDepartmentMember(db, opsID, voter2ID)

		seedSamplePoll(db, orgID, adminID)

		fmt.Println("Seeded:", rootID, adminID, managerID, voter1ID, voter2ID)
	},
}

var permissionCatalogue = []struct {
	Name  string
	Label string
}{
	{auth.PermManagePolls, "Can create and manage polls"},
	{auth.PermManagePermissions, "Can administer permissions"},
	{auth.PermManageDepartments, "Can manage departments"},
	{auth.PermInviteVoters, "Can invite voters to polls"},
	{auth.PermAssignProxies, "Can assign proxy voters"},
	{auth.PermViewResults, "Can view poll results"},
}

var groupCatalogue = map[string][]string{
	"poll_managers":       {auth.PermManagePolls, auth.PermInviteVoters, auth.PermAssignProxies, auth.PermViewResults},
	"department_managers": {auth.PermManageDepartments},
	"permission_admins":   {auth.PermManagePermissions},
}

func clearSeedData(db *sqlx.DB) {
	tables := []string{
		"votes", "poll_proxies", "voting_access_tokens", "poll_qr_tokens",
		"poll_department_invitations", "poll_invitations", "poll_options", "polls",
		"user_departments", "departments",
		"user_permissions", "user_permission_groups", "permission_group_permissions",
		"permission_groups", "permissions", "users", "organizations",
	}
	for _, t := range tables {
		if _, err := db.Exec("DELETE FROM " + t); err != nil {
			log.Fatalf("failed to clear %s: %v", t, err)
		}
	}
	fmt.Println("Cleared existing data")
}

func seedPermissions(db *sqlx.DB) {
	for _, p := range permissionCatalogue {
		var id int64
		if err := db.Get(&id, "SELECT id FROM permissions WHERE name = $1", p.Name); err == nil {
			continue
		}
		if _, err := db.Exec(
			"INSERT INTO permissions (name, label, created_at) VALUES ($1, $2, now())",
			p.Name, p.Label); err != nil {
			log.Fatalf("failed to insert permission %s: %v", p.Name, err)
		}
	}
}

func seedGroups(db *sqlx.DB) {
	for groupName, perms := range groupCatalogue {
		var groupID int64
		if err := db.Get(&groupID, "SELECT id FROM permission_groups WHERE name = $1", groupName); err != nil {
			if _, err := db.Exec(
				"INSERT INTO permission_groups (name, label, is_system, created_at) VALUES ($1, $2, true, now())",
				groupName, groupName); err != nil {
				log.Fatalf("failed to insert group %s: %v", groupName, err)
			}
			if err := db.Get(&groupID, "SELECT id FROM permission_groups WHERE name = $1", groupName); err != nil {
				log.Fatalf("group not found after insert %s: %v", groupName, err)
			}
		}

		for _, permName := range perms {
			var permID int64
			if err := db.Get(&permID, "SELECT id FROM permissions WHERE name = $1", permName); err != nil {
				log.Fatalf("permission not found %s: %v", permName, err)
			}
			var exists int
			if err := db.Get(&exists,
				"SELECT 1 FROM permission_group_permissions WHERE permission_group_id = $1 AND permission_id = $2",
				groupID, permID); err == nil {
				continue
			}
			if _, err := db.Exec(
				"INSERT INTO permission_group_permissions (permission_group_id, permission_id) VALUES ($1, $2)",
				groupID, permID); err != nil {
				log.Fatalf("failed to link group %s to permission %s: %v", groupName, permName, err)
			}
		}
	}
}

func seedOrganization(db *sqlx.DB, name, slug string) int64 {
	var id int64
	if err := db.Get(&id, "SELECT id FROM organizations WHERE slug = $1", slug); err == nil {
		return id
	}
	if _, err := db.Exec(
		"INSERT INTO organizations (name, slug, created_at, updated_at) VALUES ($1, $2, now(), now())",
		name, slug); err != nil {
		log.Fatalf("failed to insert organization %s: %v", slug, err)
	}
	if err := db.Get(&id, "SELECT id FROM organizations WHERE slug = $1", slug); err != nil {
		log.Fatalf("organization not found after insert %s: %v", slug, err)
	}
	fmt.Println("Seeded organization:", slug)
	return id
}

func seedDepartment(db *sqlx.DB, orgID int64, name, slug string) int64 {
	var id int64
	if err := db.Get(&id, "SELECT id FROM departments WHERE organization_id = $1 AND slug = $2", orgID, slug); err == nil {
		return id
	}
	if _, err := db.Exec(
		"INSERT INTO departments (organization_id, name, slug, created_at, updated_at) VALUES ($1, $2, $3, now(), now())",
		orgID, name, slug); err != nil {
		log.Fatalf("failed to insert department %s: %v", slug, err)
	}
	if err := db.Get(&id, "SELECT id FROM departments WHERE organization_id = $1 AND slug = $2", orgID, slug); err != nil {
		log.Fatalf("department not found after insert %s: %v", slug, err)
	}
	return id
}

func seedUser(db *sqlx.DB, name, email, passwordHash, role string, orgID *int64) int64 {
	var id int64
	if err := db.Get(&id, "SELECT id FROM users WHERE email = $1", email); err == nil {
		fmt.Println("user already exists:", email)
		return id
	}
	if _, err := db.Exec(
		"INSERT INTO users (name, email, password_hash, role, organization_id, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, true, now(), now())",
		name, email, passwordHash, role, orgID); err != nil {
		log.Fatalf("failed to insert user %s: %v", email, err)
	}
	if err := db.Get(&id, "SELECT id FROM users WHERE email = $1", email); err != nil {
		log.Fatalf("user not found after insert %s: %v", email, err)
	}
	fmt.Println("Seeded user:", email)
	return id
}

func addGroupMember(db *sqlx.DB, userID int64, groupName string) {
	var groupID int64
	if err := db.Get(&groupID, "SELECT id FROM permission_groups WHERE name = $1", groupName); err != nil {
		log.Fatalf("group not found %s: %v", groupName, err)
	}
	var exists int
	if err := db.Get(&exists,
		"SELECT 1 FROM user_permission_groups WHERE user_id = $1 AND permission_group_id = $2",
		userID, groupID); err == nil {
		return
	}
	if _, err := db.Exec(
		"INSERT INTO user_permission_groups (user_id, permission_group_id, created_at) VALUES ($1, $2, now())",
		userID, groupID); err != nil {
		log.Fatalf("failed to add user %d to group %s: %v", userID, groupName, err)
	}

	// Group assignment implies the admin role for plain users, mirroring the
	// service-layer role sync.
	if _, err := db.Exec(
		"UPDATE users SET role = 'admin' WHERE id = $1 AND role = 'user'", userID); err != nil {
		log.Fatalf("failed to sync role for user %d: %v", userID, err)
	}
}

func addDepartmentMember(db *sqlx.DB, deptID, userID int64) {
	var exists int
	if err := db.Get(&exists,
		"SELECT 1 FROM user_departments WHERE department_id = $1 AND user_id = $2",
		deptID, userID); err == nil {
		return
	}
	if _, err := db.Exec(
		"INSERT INTO user_departments (department_id, user_id, created_at) VALUES ($1, $2, now())",
		deptID, userID); err != nil {
		log.Fatalf("failed to add department member: %v", err)
	}
}

func seedSamplePoll(db *sqlx.DB, orgID, createdBy int64) {
	var id int64
	if err := db.Get(&id, "SELECT id FROM polls WHERE question = $1", "Where should the offsite be?"); err == nil {
		return
	}

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(7 * 24 * time.Hour)
	if _, err := db.Exec(
		`INSERT INTO polls (question, description, type, poll_type, status, visibility, voting_access_mode, start_at, end_at, organization_id, created_by, created_at, updated_at)
		 VALUES ($1, $2, 'open', 'standard', 'active', 'public', 'hybrid', $3, $4, $5, $6, now(), now())`,
		"Where should the offsite be?", "Annual offsite location vote",
		start, end, orgID, createdBy); err != nil {
		log.Fatalf("failed to insert sample poll: %v", err)
	}
	if err := db.Get(&id, "SELECT id FROM polls WHERE question = $1", "Where should the offsite be?"); err != nil {
		log.Fatalf("sample poll not found after insert: %v", err)
	}

	for i, text := range []string{"Mountains", "Beach", "City"} {
		if _, err := db.Exec(
			"INSERT INTO poll_options (poll_id, text, sort_order, created_at) VALUES ($1, $2, $3, now())",
			id, text, i); err != nil {
			log.Fatalf("failed to insert poll option %s: %v", text, err)
		}
	}

	fmt.Println("Seeded sample poll:", id)
}
