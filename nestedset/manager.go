// Package nestedset persists arbitrarily deep trees in a flat
// relational table using the nested-set encoding: every node owns an
// interval [lft, rgt] on a shared axis, ancestors strictly contain
// their descendants, and structural mutations renumber the intervals
// of every row positioned after the mutation point.
package nestedset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/arbordb/arbor/models"
)

type ManagerConfig struct {
	// CacheSize bounds the repository's GetByID read cache; zero
	// disables caching.
	CacheSize int
}

func DefaultManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		CacheSize: 10_000,
	}
}

// Manager orchestrates tree operations. Each structural mutation
// (insert, move, delete) runs as one database transaction: the gap
// open, the interval-bearing writes and the gap close either all
// commit or none do, because later steps' offsets are computed from
// pre-mutation state and cannot be replayed against a half-shifted
// axis.
//
// Concurrent structural mutations against the same tree must be
// serialized by the caller (or by the store's isolation level); the
// offsets are computed from a snapshot read that a concurrent writer
// invalidates. Payload saves and reads interleave freely.
type Manager struct {
	db     *gorm.DB
	repo   *Repository
	logger *slog.Logger
}

func NewManager(db *gorm.DB, config *ManagerConfig) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil database handle", ErrConfiguration)
	}
	if config == nil {
		config = DefaultManagerConfig()
	}
	return &Manager{
		db:     db,
		repo:   NewRepository(db, config.CacheSize),
		logger: slog.Default().With("system", "nestedset"),
	}, nil
}

func (m *Manager) MigrateDatabase() error {
	return m.db.AutoMigrate(&models.Node{})
}

// Repository exposes the read side for callers that only query.
func (m *Manager) Repository() *Repository {
	return m.repo
}

// InsertNode inserts node immediately before the node identified by
// refID when given, else as the last child of parentID, else as a new
// top-level root appended after the existing forest. The node's
// interval, level and parent pointer are assigned here; the returned
// node carries the storage-generated identifier.
func (m *Manager) InsertNode(ctx context.Context, node *models.Node, parentID, refID uint) (*models.Node, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrConfiguration)
	}
	if node.ID != 0 {
		return nil, fmt.Errorf("%w: node %d already persisted, use SaveNode", ErrInvariantViolation, node.ID)
	}
	start := time.Now()
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := m.repo.withDB(tx)

		var at, level int32
		var parent uint
		switch {
		case refID != 0:
			ref, err := repo.GetByID(ctx, refID)
			if err != nil {
				return err
			}
			at, level, parent = ref.Lft, ref.Level, ref.ParentID
		case parentID != 0:
			p, err := repo.GetByID(ctx, parentID)
			if err != nil {
				return err
			}
			at, level, parent = p.Rgt, p.Level+1, p.ID
		default:
			maxRgt, err := repo.MaxRight(ctx)
			if err != nil {
				return err
			}
			at, level, parent = maxRgt+1, 0, models.RootParentID
		}

		ops, err := openGap(at, 2)
		if err != nil {
			return err
		}
		up := NewRangeUpdater(tx)
		for _, op := range ops {
			if err := up.ShiftRange(ctx, op); err != nil {
				return err
			}
		}

		node.Lft = at
		node.Rgt = at + 1
		node.Level = level
		node.ParentID = parent
		if err := tx.Create(node).Error; err != nil {
			return fmt.Errorf("creating node: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.repo.invalidate()
	nodesInsertedCounter.Inc()
	treeOpDuration.WithLabelValues("insert").Observe(time.Since(start).Seconds())
	m.logger.Debug("node inserted", "id", node.ID, "lft", node.Lft, "rgt", node.Rgt, "level", node.Level)
	return node, nil
}

// MoveNode relocates the subtree rooted at id, preserving its internal
// order and size: immediately after the sibling identified by newRefID
// when given, else as the last child of newParentID, else to the top
// level after the existing forest. Moving a node into its own subtree
// fails before any write is issued.
func (m *Manager) MoveNode(ctx context.Context, id, newParentID, newRefID uint) error {
	start := time.Now()
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := m.repo.withDB(tx)

		node, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		width := node.Width()

		// Resolve the destination anchor. at is the pre-open axis
		// position the subtree's left edge lands on.
		var at, dstLevel int32
		var newParent uint
		switch {
		case newRefID != 0:
			ref, err := repo.GetByID(ctx, newRefID)
			if err != nil {
				return err
			}
			if node.Lft <= ref.Lft && ref.Rgt <= node.Rgt {
				return fmt.Errorf("%w: destination node %d lies inside the moving subtree of node %d",
					ErrInvariantViolation, newRefID, id)
			}
			at, dstLevel, newParent = ref.Rgt+1, ref.Level, ref.ParentID
		case newParentID != 0:
			p, err := repo.GetByID(ctx, newParentID)
			if err != nil {
				return err
			}
			if node.Lft <= p.Lft && p.Rgt <= node.Rgt {
				return fmt.Errorf("%w: destination node %d lies inside the moving subtree of node %d",
					ErrInvariantViolation, newParentID, id)
			}
			at, dstLevel, newParent = p.Rgt, p.Level+1, p.ID
		default:
			maxRgt, err := repo.MaxRight(ctx)
			if err != nil {
				return err
			}
			at, dstLevel, newParent = maxRgt+1, 0, models.RootParentID
		}

		plan, err := moveOffsets(node.Lft, node.Rgt, at, node.Level, dstLevel)
		if err != nil {
			return err
		}

		up := NewRangeUpdater(tx)

		// Open the destination gap. When the destination precedes the
		// source this shifts the source rows too; plan carries the
		// re-based source interval.
		openOps, err := openGap(at, width)
		if err != nil {
			return err
		}
		for _, op := range openOps {
			if err := up.ShiftRange(ctx, op); err != nil {
				return err
			}
		}

		// Translate the subtree into the gap, levels included so every
		// descendant keeps level = parent level + 1.
		if err := up.TranslateSubtree(ctx, plan.srcLft, plan.srcRgt, plan.nodeOffset, plan.levelOffset); err != nil {
			return err
		}

		// Close the hole left at the source. When the destination lies
		// after the source this shifts the moved rows once more; the
		// translation offset accounts for it.
		closeOps, err := closeGap(plan.srcRgt, width)
		if err != nil {
			return err
		}
		for _, op := range closeOps {
			if err := up.ShiftRange(ctx, op); err != nil {
				return err
			}
		}

		// Denormalized parent pointer goes last, once structure is
		// consistent.
		if err := tx.Model(&models.Node{}).Where("id = ?", id).Update("parent_id", newParent).Error; err != nil {
			return fmt.Errorf("updating parent pointer of node %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.repo.invalidate()
	nodesMovedCounter.Inc()
	treeOpDuration.WithLabelValues("move").Observe(time.Since(start).Seconds())
	m.logger.Debug("subtree moved", "id", id, "newParent", newParentID, "newRef", newRefID)
	return nil
}

// DeleteNode removes the node and its entire subtree, then closes the
// vacated axis gap. Partial subtree deletion is not supported; callers
// re-parent children first if they mean to keep them.
func (m *Manager) DeleteNode(ctx context.Context, id uint) error {
	start := time.Now()
	var removed int64
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := m.repo.withDB(tx)

		node, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		width := node.Width()

		res := tx.Where("lft >= ? AND rgt <= ?", node.Lft, node.Rgt).Delete(&models.Node{})
		if res.Error != nil {
			return fmt.Errorf("deleting subtree of node %d: %w", id, res.Error)
		}
		removed = res.RowsAffected

		closeOps, err := closeGap(node.Rgt, width)
		if err != nil {
			return err
		}
		up := NewRangeUpdater(tx)
		for _, op := range closeOps {
			if err := up.ShiftRange(ctx, op); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.repo.invalidate()
	nodesDeletedCounter.Add(float64(removed))
	treeOpDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	m.logger.Debug("subtree deleted", "id", id, "rows", removed)
	return nil
}

// SaveNode persists payload-only changes (label, code, status). It
// never touches the structural columns, and returns the node unchanged
// when the stored payload already matches.
func (m *Manager) SaveNode(ctx context.Context, node *models.Node) (*models.Node, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrConfiguration)
	}
	if node.ID == 0 {
		return nil, fmt.Errorf("%w: node has no identifier, use InsertNode", ErrInvariantViolation)
	}
	current, err := m.repo.GetByID(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	if current.Label == node.Label && current.Code == node.Code && current.Status == node.Status {
		return node, nil
	}
	err = m.db.WithContext(ctx).Model(&models.Node{}).
		Where("id = ?", node.ID).
		Select("label", "code", "status", "updated_at").
		Updates(models.Node{Label: node.Label, Code: node.Code, Status: node.Status, UpdatedAt: time.Now()}).Error
	if err != nil {
		return nil, fmt.Errorf("saving node %d: %w", node.ID, err)
	}
	m.repo.invalidate()
	return node, nil
}

// SearchNodes runs a predicate search across the whole forest, or
// within the subtree of rootID when given. Order defaults to lft
// ascending.
func (m *Manager) SearchNodes(ctx context.Context, pred Predicate, order string, rootID uint) ([]models.Node, error) {
	lower, upper := int32(1), maxAxis
	if rootID != 0 {
		root, err := m.repo.GetByID(ctx, rootID)
		if err != nil {
			return nil, err
		}
		lower, upper = root.Lft, root.Rgt
	}
	return m.repo.SearchBounded(ctx, lower, upper, pred, order)
}

// GetPath returns every ancestor of id, itself included, ordered root
// to leaf.
func (m *Manager) GetPath(ctx context.Context, id uint) ([]models.Node, error) {
	node, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.repo.GetPath(ctx, node)
}

// GetNode materializes the node and its descendants down to the given
// depth as an in-memory tree.
func (m *Manager) GetNode(ctx context.Context, id uint, depth models.Depth) (*Tree, error) {
	node, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if depth == models.DepthSelf {
		return &Tree{Node: *node}, nil
	}
	maxLevel := int64(node.Level) + int64(depth)
	if maxLevel > int64(maxAxis) {
		maxLevel = int64(maxAxis)
	}
	rows, err := m.repo.SearchBounded(ctx, node.Lft, node.Rgt, LevelAtMost(int32(maxLevel)), "")
	if err != nil {
		return nil, err
	}
	return BuildTree(rows)
}
