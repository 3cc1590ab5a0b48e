package repository

import (
	"database/sql"
	"fmt"

	"ComfyPortal/model"
)

// UserRepository defines the interface for user data operations.
// Implementations return (nil, nil) when a lookup finds no row.
type UserRepository interface {
	CreateUser(user *model.User) (int64, error)
	GetUserByID(id int64) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	GetUserByWechatUserID(wechatUserID string) (*model.User, error)
	UpdateEmail(userID int64, email string) error
	UpdateWechatProfile(userID int64, profile *model.User) error
	ResetPassword(username string, passwordHash string) error
	CountUsers() (int64, error)
}

const userColumns = "id, username, email, password_hash, credits, wechat_userid, wechat_name, wechat_mobile, wechat_avatar, wechat_department, wechat_position, is_active, created_at, updated_at"

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new mysqlUserRepository.
func NewMySQLUserRepository(db *sql.DB) UserRepository {
	return &mysqlUserRepository{db: db}
}

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Credits,
		&user.WechatUserID, &user.WechatName, &user.WechatMobile, &user.WechatAvatar,
		&user.WechatDepartment, &user.WechatPosition,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, err
	}
	return user, nil
}

// CreateUser adds a new user to the database.
func (r *mysqlUserRepository) CreateUser(user *model.User) (int64, error) {
	query := `INSERT INTO users
		(username, email, password_hash, credits, wechat_userid, wechat_name, wechat_mobile, wechat_avatar, wechat_department, wechat_position, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare create user statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(
		user.Username, user.Email, user.PasswordHash, user.Credits,
		user.WechatUserID, user.WechatName, user.WechatMobile, user.WechatAvatar,
		user.WechatDepartment, user.WechatPosition, user.IsActive,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to execute create user statement: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for user: %w", err)
	}
	return id, nil
}

// GetUserByID retrieves a user by their ID.
func (r *mysqlUserRepository) GetUserByID(id int64) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	user, err := scanUser(r.db.QueryRow(query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to scan user row for ID %d: %w", id, err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by their username.
func (r *mysqlUserRepository) GetUserByUsername(username string) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE username = ?"
	user, err := scanUser(r.db.QueryRow(query, username))
	if err != nil {
		return nil, fmt.Errorf("failed to scan user row for username %s: %w", username, err)
	}
	return user, nil
}

// GetUserByWechatUserID retrieves a user by their WeChat Work user id.
// The OAuth path must key on this field, not on username, so that WeChat
// identities never collide with unrelated local accounts.
func (r *mysqlUserRepository) GetUserByWechatUserID(wechatUserID string) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE wechat_userid = ?"
	user, err := scanUser(r.db.QueryRow(query, wechatUserID))
	if err != nil {
		return nil, fmt.Errorf("failed to scan user row for wechat_userid %s: %w", wechatUserID, err)
	}
	return user, nil
}

// UpdateEmail updates a user's email address. Password and credits are left untouched.
func (r *mysqlUserRepository) UpdateEmail(userID int64, email string) error {
	query := "UPDATE users SET email = ?, updated_at = NOW() WHERE id = ?"
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare update email statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(email, userID)
	if err != nil {
		return fmt.Errorf("failed to execute update email statement: %w", err)
	}
	return nil
}

// UpdateWechatProfile updates only the WeChat profile fields of a user.
// Username, email, credits and password_hash are deliberately not part of
// this statement.
func (r *mysqlUserRepository) UpdateWechatProfile(userID int64, profile *model.User) error {
	query := `UPDATE users SET
		wechat_name = ?, wechat_mobile = ?, wechat_avatar = ?, wechat_department = ?, wechat_position = ?, updated_at = NOW()
		WHERE id = ?`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare update wechat profile statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		profile.WechatName, profile.WechatMobile, profile.WechatAvatar,
		profile.WechatDepartment, profile.WechatPosition, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to execute update wechat profile statement: %w", err)
	}
	return nil
}

// ResetPassword is the administrative reset operation. It is the only update
// path allowed to rewrite password_hash.
func (r *mysqlUserRepository) ResetPassword(username string, passwordHash string) error {
	query := "UPDATE users SET password_hash = ?, updated_at = NOW() WHERE username = ?"
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare reset password statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(passwordHash, username)
	if err != nil {
		return fmt.Errorf("failed to execute reset password statement: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows for reset password: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountUsers returns the total number of users.
func (r *mysqlUserRepository) CountUsers() (int64, error) {
	var count int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
