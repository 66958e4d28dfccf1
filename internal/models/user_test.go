package models

import "testing"

func strPtr(s string) *string { return &s }

func TestValidateRoles(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  bool
	}{
		{"single valid role", []string{"manager"}, true},
		{"all valid roles", []string{"viewer", "manager", "company_admin", "platform_admin"}, true},
		{"unknown role", []string{"manager", "superuser"}, false},
		{"empty list", []string{}, false},
		{"nil list", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateRoles(tt.roles); got != tt.want {
				t.Errorf("ValidateRoles(%v) = %v, want %v", tt.roles, got, tt.want)
			}
		})
	}
}

func TestUserIsPlatformAdmin(t *testing.T) {
	tests := []struct {
		name string
		user User
		want bool
	}{
		{"platform admin in platform company", User{CompanyID: 1, Roles: []string{"platform_admin"}}, true},
		{"platform_admin role in another company", User{CompanyID: 7, Roles: []string{"platform_admin"}}, false},
		{"platform company without the role", User{CompanyID: 1, Roles: []string{"company_admin"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.IsPlatformAdmin(); got != tt.want {
				t.Errorf("IsPlatformAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserCanManageCompany(t *testing.T) {
	platformAdmin := User{CompanyID: 1, Roles: []string{"platform_admin"}}
	companyAdmin := User{CompanyID: 5, Roles: []string{"company_admin"}}
	manager := User{CompanyID: 5, Roles: []string{"manager"}}

	if !platformAdmin.CanManageCompany(42) {
		t.Error("Expected platform admin to manage any company")
	}
	if !companyAdmin.CanManageCompany(5) {
		t.Error("Expected company admin to manage own company")
	}
	if companyAdmin.CanManageCompany(6) {
		t.Error("Expected company admin not to manage another company")
	}
	if manager.CanManageCompany(5) {
		t.Error("Expected manager not to manage the company")
	}
}

func TestUserGetDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{
			name: "full name",
			user: User{Email: "a@b.c", FirstName: strPtr("Ana"), LastName: strPtr("Silva")},
			want: "Ana Silva",
		},
		{
			name: "first name only",
			user: User{Email: "a@b.c", FirstName: strPtr("Ana")},
			want: "Ana",
		},
		{
			name: "last name only",
			user: User{Email: "a@b.c", LastName: strPtr("Silva")},
			want: "Silva",
		},
		{
			name: "falls back to email",
			user: User{Email: "a@b.c"},
			want: "a@b.c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.GetDisplayName(); got != tt.want {
				t.Errorf("GetDisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserRedacted(t *testing.T) {
	user := User{
		ID:           3,
		Email:        "a@b.c",
		PasswordHash: "$2a$12$notarealhash",
		CompanyID:    5,
		Roles:        []string{"manager"},
		IsActive:     true,
	}

	redacted := user.Redacted()

	if redacted.PasswordHash != "" {
		t.Error("Expected Redacted() to clear the password hash")
	}
	if redacted.ID != user.ID || redacted.Email != user.Email || redacted.CompanyID != user.CompanyID {
		t.Error("Expected Redacted() to keep identity fields")
	}
}
