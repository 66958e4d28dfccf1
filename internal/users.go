package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rentfleet-api/internal/auth"
	"rentfleet-api/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, email, first_name, last_name, phone, company_id, roles, is_active,
	       created_at, updated_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }, user *models.User) error {
	var firstName, lastName, phone sql.NullString
	var lastLoginAt sql.NullTime
	var roles pq.StringArray

	err := row.Scan(
		&user.ID, &user.Email, &firstName, &lastName, &phone,
		&user.CompanyID, &roles, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &lastLoginAt,
	)
	if err != nil {
		return err
	}

	if firstName.Valid {
		user.FirstName = &firstName.String
	}
	if lastName.Valid {
		user.LastName = &lastName.String
	}
	if phone.Valid {
		user.Phone = &phone.String
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	user.Roles = roles
	return nil
}

// loginUser handles user authentication
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	// Login is available to all users, no company scoping yet
	query := `
		SELECT id, email, password_hash, first_name, last_name, phone, company_id, roles, is_active,
		       created_at, updated_at, last_login_at
		FROM users
		WHERE email = $1 AND is_active = true`

	var user models.User
	var firstName, lastName, phone sql.NullString
	var lastLoginAt sql.NullTime
	var roles pq.StringArray

	err := s.DB.QueryRowContext(r.Context(), query, req.Email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &firstName, &lastName, &phone,
		&user.CompanyID, &roles, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &lastLoginAt,
	)

	if err == sql.ErrNoRows {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	// Update last login time; losing this must not fail the login
	if _, err := s.DB.ExecContext(r.Context(), "UPDATE users SET last_login_at = now() WHERE id = $1", user.ID); err != nil {
		log.Printf("Failed to update last_login_at: %v", err)
	}

	if firstName.Valid {
		user.FirstName = &firstName.String
	}
	if lastName.Valid {
		user.LastName = &lastName.String
	}
	if phone.Valid {
		user.Phone = &phone.String
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	user.Roles = roles

	token, err := s.JWTManager.GenerateToken(user.ID, user.CompanyID, user.Roles)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	response := models.LoginResponse{
		Token: token,
		User:  user.Redacted(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// signup creates a company together with its first admin user in a
// single transaction. The new company starts on a trial.
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.CompanyName) == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "Company name, email, and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	slug := slugify(req.CompanyName)
	if slug == "" {
		http.Error(w, "Could not derive a slug from company name", http.StatusBadRequest)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	var company models.Company
	err = scanCompany(tx.QueryRowContext(r.Context(), `
		INSERT INTO companies (name, slug, subscription_status, trial_ends_at)
		VALUES ($1, $2, 'trialing', now() + make_interval(days => $3))
		RETURNING `+companyColumns, req.CompanyName, slug, s.Config.TrialDays), &company)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "A company with this name already exists", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create company", http.StatusInternalServerError)
		return
	}

	user := models.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		CompanyID: company.ID,
		Roles:     []string{"company_admin"},
		IsActive:  true,
	}
	err = tx.QueryRowContext(r.Context(), `
		INSERT INTO users (email, password_hash, first_name, last_name, company_id, roles)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		req.Email, string(hashedPassword), req.FirstName, req.LastName,
		company.ID, pq.Array(user.Roles)).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "User with this email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	token, err := s.JWTManager.GenerateToken(user.ID, user.CompanyID, user.Roles)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	response := struct {
		Token   string         `json:"token"`
		User    models.User    `json:"user"`
		Company models.Company `json:"company"`
	}{token, user.Redacted(), company}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// requestPasswordReset mints a one-hour reset token and mails it out.
// The response is identical whether or not the email exists.
func (s *Server) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	var user models.User
	err := scanUser(s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s FROM users WHERE email = $1 AND is_active = true`, userColumns), req.Email), &user)
	if err != nil && err != sql.ErrNoRows {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if err == nil {
		token := uuid.NewString()
		_, err = s.DB.ExecContext(r.Context(), `
			INSERT INTO password_reset_tokens (user_id, token, expires_at)
			VALUES ($1, $2, now() + interval '1 hour')`, user.ID, token)
		if err != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		// Mail delivery happens off the request path
		go func(email, name, token string) {
			data := map[string]string{"Name": name, "Token": token}
			if err := s.Mailer.Send(email, "password_reset.tmpl", data); err != nil {
				log.Printf("Failed to send password reset mail: %v", err)
			}
		}(user.Email, user.GetDisplayName(), token)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "If the email is registered, a reset token has been sent",
	})
}

// confirmPasswordReset redeems a reset token for a new password. The
// token and any siblings for the same user are consumed on success.
func (s *Server) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetConfirm
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		http.Error(w, "Token and new password are required", http.StatusBadRequest)
		return
	}
	if len(req.NewPassword) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	var userID int64
	err := s.DB.QueryRowContext(r.Context(), `
		SELECT user_id FROM password_reset_tokens
		WHERE token = $1 AND expires_at > now() AND used_at IS NULL`, req.Token).Scan(&userID)
	if err == sql.ErrNoRows {
		http.Error(w, "Invalid or expired token", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(r.Context(),
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		string(newHash), userID); err != nil {
		http.Error(w, "Failed to update password", http.StatusInternalServerError)
		return
	}
	if _, err := tx.ExecContext(r.Context(),
		`UPDATE password_reset_tokens SET used_at = now() WHERE user_id = $1 AND used_at IS NULL`,
		userID); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// logout drops any outstanding reset tokens for the caller. Access
// tokens are stateless and simply age out.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		http.Error(w, "User ID not found in context", http.StatusInternalServerError)
		return
	}

	if _, err := s.DB.ExecContext(r.Context(),
		`DELETE FROM password_reset_tokens WHERE user_id = $1`, userID); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// createUser handles user creation with multi-tenant logic
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" || len(req.Roles) == 0 {
		http.Error(w, "Email, password, and roles are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	if !models.ValidateRoles(req.Roles) {
		http.Error(w, "Invalid roles provided", http.StatusBadRequest)
		return
	}

	// platform_admin can only be granted by another platform admin
	if containsRole(req.Roles, "platform_admin") && !auth.IsPlatformAdmin(r.Context()) {
		http.Error(w, "Cannot grant platform_admin role", http.StatusForbidden)
		return
	}

	targetCompanyID := auth.GetTargetCompanyID(r.Context(), req.CompanyID)

	if !auth.CanManageCompany(r.Context(), targetCompanyID) {
		http.Error(w, "Cannot create users for this company", http.StatusForbidden)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, phone, company_id, roles)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	var userID int64
	var createdAt, updatedAt time.Time

	q := dbFrom(r.Context(), s.DB)
	err = q.QueryRowContext(r.Context(), query,
		req.Email, string(hashedPassword), req.FirstName, req.LastName, req.Phone,
		targetCompanyID, pq.Array(req.Roles)).Scan(&userID, &createdAt, &updatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "User with this email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	user := models.User{
		ID:        userID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		CompanyID: targetCompanyID,
		Roles:     req.Roles,
		IsActive:  true,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	s.writeAudit(r.Context(), "user", userID, "create", models.JSONB{"email": req.Email})

	// Invites are best effort
	var companyName string
	if err := s.DB.QueryRowContext(r.Context(),
		`SELECT name FROM companies WHERE id = $1`, targetCompanyID).Scan(&companyName); err == nil {
		go func(email, name, company string) {
			data := map[string]string{"Name": name, "Email": email, "CompanyName": company}
			if err := s.Mailer.Send(email, "user_invite.tmpl", data); err != nil {
				log.Printf("Failed to send invite mail: %v", err)
			}
		}(user.Email, user.GetDisplayName(), companyName)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// listUsers handles user listing with multi-tenant filtering
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	query := fmt.Sprintf(`SELECT %s FROM users`, userColumns)
	args := []interface{}{}

	// Platform admins may filter by company or see everyone; everyone
	// else is pinned to their own company.
	if auth.IsPlatformAdmin(r.Context()) {
		if companyFilter := r.URL.Query().Get("company_id"); companyFilter != "" {
			companyID, err := strconv.ParseInt(companyFilter, 10, 64)
			if err != nil {
				http.Error(w, "Invalid company_id parameter", http.StatusBadRequest)
				return
			}
			query += " WHERE company_id = $1"
			args = append(args, companyID)
		}
	} else {
		query += " WHERE company_id = $1"
		args = append(args, auth.CompanyIDFromContext(r.Context()))
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.DB.QueryContext(r.Context(), query, args...)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			http.Error(w, "Failed to scan user", http.StatusInternalServerError)
			return
		}
		users = append(users, user.Redacted())
	}
	if err := rows.Err(); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

// getUser handles getting a specific user
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var user models.User
	err = scanUser(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns), id), &user)
	if err == sql.ErrNoRows {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if !auth.CanManageCompany(r.Context(), user.CompanyID) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user.Redacted())
}

// updateUser handles user updates with multi-tenant logic
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Get existing user first to check permissions
	var existingCompanyID int64
	err = s.DB.QueryRowContext(r.Context(), `SELECT company_id FROM users WHERE id = $1`, id).Scan(&existingCompanyID)
	if err == sql.ErrNoRows {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if !auth.CanManageCompany(r.Context(), existingCompanyID) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	// Moving users between companies is a platform operation
	if req.CompanyID != nil && *req.CompanyID != existingCompanyID {
		if !auth.IsPlatformAdmin(r.Context()) {
			http.Error(w, "Only platform admins can change a user's company", http.StatusForbidden)
			return
		}
	}

	if req.Roles != nil && !models.ValidateRoles(req.Roles) {
		http.Error(w, "Invalid roles provided", http.StatusBadRequest)
		return
	}
	if req.Roles != nil && containsRole(req.Roles, "platform_admin") && !auth.IsPlatformAdmin(r.Context()) {
		http.Error(w, "Cannot grant platform_admin role", http.StatusForbidden)
		return
	}

	// Build update query dynamically
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	if req.FirstName != nil {
		setParts = append(setParts, fmt.Sprintf("first_name = $%d", argIndex))
		args = append(args, req.FirstName)
		argIndex++
	}
	if req.LastName != nil {
		setParts = append(setParts, fmt.Sprintf("last_name = $%d", argIndex))
		args = append(args, req.LastName)
		argIndex++
	}
	if req.Phone != nil {
		setParts = append(setParts, fmt.Sprintf("phone = $%d", argIndex))
		args = append(args, req.Phone)
		argIndex++
	}
	if req.CompanyID != nil {
		setParts = append(setParts, fmt.Sprintf("company_id = $%d", argIndex))
		args = append(args, *req.CompanyID)
		argIndex++
	}
	if req.Roles != nil {
		setParts = append(setParts, fmt.Sprintf("roles = $%d", argIndex))
		args = append(args, pq.Array(req.Roles))
		argIndex++
	}
	if req.IsActive != nil {
		setParts = append(setParts, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *req.IsActive)
		argIndex++
	}

	if len(setParts) == 0 {
		http.Error(w, "No fields to update", http.StatusBadRequest)
		return
	}

	setParts = append(setParts, "updated_at = now()")
	updateQuery := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $%d
		RETURNING %s`,
		strings.Join(setParts, ", "), argIndex, userColumns)

	args = append(args, id)

	var user models.User
	if err := scanUser(s.DB.QueryRowContext(r.Context(), updateQuery, args...), &user); err != nil {
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	s.writeAudit(r.Context(), "user", user.ID, "update", nil)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user.Redacted())
}

// deleteUser handles user deletion
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	// Check if user exists and get their info
	var companyID int64
	var roles pq.StringArray
	err = s.DB.QueryRowContext(r.Context(), `SELECT company_id, roles FROM users WHERE id = $1`, id).Scan(&companyID, &roles)
	if err == sql.ErrNoRows {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if !auth.CanManageCompany(r.Context(), companyID) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	// Check if this is the last company_admin in the company
	if containsRole(roles, "company_admin") {
		var adminCount int
		countQuery := `SELECT COUNT(*) FROM users WHERE company_id = $1 AND roles && ARRAY['company_admin'] AND is_active = true AND id != $2`
		if err := s.DB.QueryRowContext(r.Context(), countQuery, companyID, id).Scan(&adminCount); err != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		if adminCount == 0 {
			http.Error(w, "Cannot delete the last company_admin in the company", http.StatusBadRequest)
			return
		}
	}

	result, err := s.DB.ExecContext(r.Context(), `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if rowsAffected == 0 {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	s.writeAudit(r.Context(), "user", id, "delete", nil)

	w.WriteHeader(http.StatusNoContent)
}

// getUserProfile handles getting current user's profile
func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		http.Error(w, "User ID not found in context", http.StatusInternalServerError)
		return
	}

	var user models.User
	err := scanUser(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns), userID), &user)
	if err == sql.ErrNoRows {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user.Redacted())
}

// updateUserProfile handles updating current user's profile
func (s *Server) updateUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		http.Error(w, "User ID not found in context", http.StatusInternalServerError)
		return
	}

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	if req.FirstName != nil {
		setParts = append(setParts, fmt.Sprintf("first_name = $%d", argIndex))
		args = append(args, req.FirstName)
		argIndex++
	}
	if req.LastName != nil {
		setParts = append(setParts, fmt.Sprintf("last_name = $%d", argIndex))
		args = append(args, req.LastName)
		argIndex++
	}
	if req.Phone != nil {
		setParts = append(setParts, fmt.Sprintf("phone = $%d", argIndex))
		args = append(args, req.Phone)
		argIndex++
	}

	if len(setParts) == 0 {
		http.Error(w, "No fields to update", http.StatusBadRequest)
		return
	}

	setParts = append(setParts, "updated_at = now()")
	updateQuery := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $%d
		RETURNING %s`,
		strings.Join(setParts, ", "), argIndex, userColumns)

	args = append(args, userID)

	var user models.User
	if err := scanUser(s.DB.QueryRowContext(r.Context(), updateQuery, args...), &user); err != nil {
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user.Redacted())
}

// changePassword handles password changes
func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		http.Error(w, "User ID not found in context", http.StatusInternalServerError)
		return
	}

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		http.Error(w, "Current password and new password are required", http.StatusBadRequest)
		return
	}
	if len(req.NewPassword) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	var currentPasswordHash string
	err := s.DB.QueryRowContext(r.Context(), `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&currentPasswordHash)
	if err == sql.ErrNoRows {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(currentPasswordHash), []byte(req.CurrentPassword)); err != nil {
		http.Error(w, "Current password is incorrect", http.StatusBadRequest)
		return
	}

	newPasswordHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to hash new password", http.StatusInternalServerError)
		return
	}

	if _, err := s.DB.ExecContext(r.Context(),
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		string(newPasswordHash), userID); err != nil {
		http.Error(w, "Failed to update password", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper function to check if a role exists in a slice
func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
