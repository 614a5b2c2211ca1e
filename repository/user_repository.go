package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/masambo/jukebox-joy-scan/model"
)

// UserRepository 定义用户相关的数据库操作接口
type UserRepository interface {
	// CreateUser 创建新用户
	CreateUser(ctx context.Context, user *model.User) (int64, error)

	// GetUserByUsername 根据用户名获取用户
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// GetUserByEmail 根据邮箱获取用户
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// GrantRole 给用户授予角色
	GrantRole(ctx context.Context, userID int64, role string) error

	// HasRole 判断用户是否拥有角色
	HasRole(ctx context.Context, userID int64, role string) (bool, error)

	// GetRoles 获取用户的所有角色
	GetRoles(ctx context.Context, userID int64) ([]string, error)
}

// MySQLUserRepository MySQL实现的用户仓库
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository 创建新的MySQL用户仓库实例
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

// CreateUser 创建新用户
func (r *MySQLUserRepository) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	query := `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query, user.Username, user.Email, user.PasswordHash, now, now)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

func (r *MySQLUserRepository) getUserBy(ctx context.Context, column, value string) (*model.User, error) {
	query := `SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE ` + column + ` = ?`

	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return user, nil
}

// GetUserByUsername 根据用户名获取用户
func (r *MySQLUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getUserBy(ctx, "username", username)
}

// GetUserByEmail 根据邮箱获取用户
func (r *MySQLUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUserBy(ctx, "email", email)
}

// GrantRole 给用户授予角色
func (r *MySQLUserRepository) GrantRole(ctx context.Context, userID int64, role string) error {
	query := `INSERT IGNORE INTO user_roles (user_id, role, created_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, userID, role, time.Now())
	return err
}

// HasRole 判断用户是否拥有角色
func (r *MySQLUserRepository) HasRole(ctx context.Context, userID int64, role string) (bool, error) {
	query := `SELECT COUNT(1) FROM user_roles WHERE user_id = ? AND role = ?`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, role).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetRoles 获取用户的所有角色
func (r *MySQLUserRepository) GetRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}

	return roles, rows.Err()
}
