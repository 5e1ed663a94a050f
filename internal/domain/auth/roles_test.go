package auth

import (
	"context"
	"testing"
)

func TestCheckerHasPermission(t *testing.T) {
	checker := NewChecker()

	tests := []struct {
		name       string
		role       string
		permission string
		want       bool
	}{
		{
			name:       "master can upload",
			role:       RoleMaster,
			permission: PermAttendanceUpload,
			want:       true,
		},
		{
			name:       "company admin can upload",
			role:       RoleCompanyAdmin,
			permission: PermAttendanceUpload,
			want:       true,
		},
		{
			name:       "supervisor cannot upload",
			role:       RoleSupervisor,
			permission: PermAttendanceUpload,
			want:       false,
		},
		{
			name:       "employee cannot manage users",
			role:       RoleEmployee,
			permission: PermUsersWrite,
			want:       false,
		},
		{
			name:       "employee can read attendance",
			role:       RoleEmployee,
			permission: PermAttendanceRead,
			want:       true,
		},
		{
			name:       "unknown role has nothing",
			role:       "intern",
			permission: PermAttendanceRead,
			want:       false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := checker.HasPermission(context.Background(), tc.role, tc.permission)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("HasPermission(%s, %s) = %v, want %v", tc.role, tc.permission, got, tc.want)
			}
		})
	}
}

func TestEveryRoleHasAtLeastReadAccess(t *testing.T) {
	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
	}
	if !ValidRole(RoleEmployee) {
		t.Fatal("employee must be a valid role")
	}
	if ValidRole("") {
		t.Fatal("empty role must not validate")
	}
}
