package nestedset

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"

	"github.com/arbordb/arbor/models"
)

// Predicate is an opaque filter the repository ANDs with its own
// interval bounds before executing a search. It follows gorm's scope
// convention; the engine never inspects its structure.
type Predicate func(*gorm.DB) *gorm.DB

// LevelAtMost restricts a search to nodes at or above the given depth.
func LevelAtMost(level int32) Predicate {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("level <= ?", level)
	}
}

// StatusIs restricts a search to nodes carrying the given status
// payload value.
func StatusIs(status string) Predicate {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", status)
	}
}

// Repository reads node rows. GetByID results are cached; the manager
// drops the cache after every structural mutation, and transaction-
// scoped copies (withDB) read uncached so units of work always see
// their own snapshot.
type Repository struct {
	db    *gorm.DB
	cache *lru.Cache[uint, models.Node]
}

func NewRepository(db *gorm.DB, cacheSize int) *Repository {
	var cache *lru.Cache[uint, models.Node]
	if cacheSize > 0 {
		cache, _ = lru.New[uint, models.Node](cacheSize)
	}
	return &Repository{db: db, cache: cache}
}

// withDB returns an uncached copy of the repository reading through
// db, typically a transaction handle.
func (r *Repository) withDB(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// invalidate drops every cached node. Called after structural
// mutations, which can shift intervals on arbitrarily many rows.
func (r *Repository) invalidate() {
	if r.cache != nil {
		r.cache.Purge()
	}
}

// GetByID returns the node with the given identifier, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uint) (*models.Node, error) {
	if r.cache != nil {
		if n, ok := r.cache.Get(id); ok {
			return &n, nil
		}
	}
	var node models.Node
	if err := r.db.WithContext(ctx).First(&node, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("fetching node %d: %w", id, err)
	}
	if r.cache != nil {
		r.cache.Add(id, node)
	}
	return &node, nil
}

// GetRoot returns the first top-level node in the given axis
// direction, or nil without error when the tree is empty.
func (r *Repository) GetRoot(ctx context.Context, dir models.Direction) (*models.Node, error) {
	var node models.Node
	err := r.db.WithContext(ctx).
		Where("level = 0").
		Order(fmt.Sprintf("lft %s", dir)).
		First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching root: %w", err)
	}
	return &node, nil
}

// MaxRight returns the highest occupied axis position, or 0 when the
// table is empty.
func (r *Repository) MaxRight(ctx context.Context) (int32, error) {
	var maxRgt int32
	err := r.db.WithContext(ctx).Model(&models.Node{}).
		Select("COALESCE(MAX(rgt), 0)").
		Scan(&maxRgt).Error
	if err != nil {
		return 0, fmt.Errorf("fetching max right bound: %w", err)
	}
	return maxRgt, nil
}

// SearchBounded returns every node whose interval lies within
// [lower, upper] and satisfies pred, ordered by order (default
// "lft ASC"). This is the read primitive all higher-level reads
// compose from.
func (r *Repository) SearchBounded(ctx context.Context, lower, upper int32, pred Predicate, order string) ([]models.Node, error) {
	if order == "" {
		order = "lft ASC"
	}
	q := r.db.WithContext(ctx).
		Where("lft >= ? AND rgt <= ?", lower, upper).
		Order(order)
	if pred != nil {
		q = pred(q)
	}
	var nodes []models.Node
	if err := q.Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("bounded search [%d, %d]: %w", lower, upper, err)
	}
	return nodes, nil
}

// GetPath returns the ancestors of node, including itself, ordered
// root first. Under the nested-set encoding those are exactly the rows
// whose interval contains the node's.
func (r *Repository) GetPath(ctx context.Context, node *models.Node) ([]models.Node, error) {
	var nodes []models.Node
	err := r.db.WithContext(ctx).
		Where("lft <= ? AND rgt >= ?", node.Lft, node.Rgt).
		Order("lft ASC").
		Find(&nodes).Error
	if err != nil {
		return nil, fmt.Errorf("fetching path for node %d: %w", node.ID, err)
	}
	return nodes, nil
}
