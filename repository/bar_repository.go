package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/masambo/jukebox-joy-scan/model"
)

// BarRepository 定义酒吧相关的数据库操作接口
type BarRepository interface {
	// CreateBar 创建新酒吧
	CreateBar(ctx context.Context, bar *model.Bar) (int64, error)

	// GetBarByID 根据ID获取酒吧信息
	GetBarByID(ctx context.Context, id int64) (*model.Bar, error)

	// GetBarBySlug 根据slug获取酒吧信息（顾客扫码入口）
	GetBarBySlug(ctx context.Context, slug string) (*model.Bar, error)

	// GetBarForManager 获取用户管理的酒吧；没有时返回 nil
	GetBarForManager(ctx context.Context, userID int64) (*model.Bar, error)

	// ManagesBar 判断用户是否管理指定酒吧
	ManagesBar(ctx context.Context, userID, barID int64) (bool, error)

	// UpdateBar 更新酒吧的展示信息（简介、地址、标志和主题色）
	UpdateBar(ctx context.Context, bar *model.Bar) error

	// AddManager 把用户登记为酒吧经理
	AddManager(ctx context.Context, userID, barID int64) error
}

// MySQLBarRepository MySQL实现的酒吧仓库
type MySQLBarRepository struct {
	db *sql.DB
}

// NewMySQLBarRepository 创建新的MySQL酒吧仓库实例
func NewMySQLBarRepository(db *sql.DB) *MySQLBarRepository {
	return &MySQLBarRepository{db: db}
}

const barColumns = `id, name, slug, address, description, logo_url, primary_color, secondary_color, created_at, updated_at`

func scanBar(row *sql.Row) (*model.Bar, error) {
	bar := &model.Bar{}
	err := row.Scan(
		&bar.ID,
		&bar.Name,
		&bar.Slug,
		&bar.Address,
		&bar.Description,
		&bar.LogoURL,
		&bar.PrimaryColor,
		&bar.SecondaryColor,
		&bar.CreatedAt,
		&bar.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return bar, nil
}

// CreateBar 创建新酒吧
func (r *MySQLBarRepository) CreateBar(ctx context.Context, bar *model.Bar) (int64, error) {
	query := `
		INSERT INTO bars (name, slug, address, description, logo_url, primary_color, secondary_color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		bar.Name,
		bar.Slug,
		bar.Address,
		bar.Description,
		bar.LogoURL,
		bar.PrimaryColor,
		bar.SecondaryColor,
		now,
		now,
	)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetBarByID 根据ID获取酒吧信息
func (r *MySQLBarRepository) GetBarByID(ctx context.Context, id int64) (*model.Bar, error) {
	query := `SELECT ` + barColumns + ` FROM bars WHERE id = ?`
	return scanBar(r.db.QueryRowContext(ctx, query, id))
}

// GetBarBySlug 根据slug获取酒吧信息
func (r *MySQLBarRepository) GetBarBySlug(ctx context.Context, slug string) (*model.Bar, error) {
	query := `SELECT ` + barColumns + ` FROM bars WHERE slug = ?`
	return scanBar(r.db.QueryRowContext(ctx, query, slug))
}

// GetBarForManager 获取用户管理的酒吧
func (r *MySQLBarRepository) GetBarForManager(ctx context.Context, userID int64) (*model.Bar, error) {
	query := `
		SELECT b.id, b.name, b.slug, b.address, b.description, b.logo_url, b.primary_color, b.secondary_color, b.created_at, b.updated_at
		FROM bars b
		JOIN bar_managers bm ON bm.bar_id = b.id
		WHERE bm.user_id = ?
		LIMIT 1
	`
	return scanBar(r.db.QueryRowContext(ctx, query, userID))
}

// UpdateBar 更新酒吧的展示信息。名称和slug是身份字段，不在此更新。
func (r *MySQLBarRepository) UpdateBar(ctx context.Context, bar *model.Bar) error {
	query := `
		UPDATE bars
		SET address = ?, description = ?, logo_url = ?, primary_color = ?, secondary_color = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		bar.Address,
		bar.Description,
		bar.LogoURL,
		bar.PrimaryColor,
		bar.SecondaryColor,
		time.Now(),
		bar.ID,
	)
	return err
}

// AddManager 把用户登记为酒吧经理
func (r *MySQLBarRepository) AddManager(ctx context.Context, userID, barID int64) error {
	query := `INSERT IGNORE INTO bar_managers (bar_id, user_id, created_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, barID, userID, time.Now())
	return err
}

// ManagesBar 判断用户是否管理指定酒吧
func (r *MySQLBarRepository) ManagesBar(ctx context.Context, userID, barID int64) (bool, error) {
	query := `SELECT COUNT(1) FROM bar_managers WHERE user_id = ? AND bar_id = ?`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, barID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
