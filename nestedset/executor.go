package nestedset

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/arbordb/arbor/models"
)

// RangeUpdater applies interval shifts to node rows. Every call is
// atomic on its own; callers compose multiple calls into one unit of
// work by constructing the updater over a transaction handle.
type RangeUpdater interface {
	// ShiftRange adds op.Offset to op.Column on every row whose column
	// value lies in [op.Lower, op.Upper].
	ShiftRange(ctx context.Context, op ShiftOp) error

	// TranslateSubtree adds nodeOffset to both interval bounds and
	// levelOffset to the level of every row whose interval lies within
	// [lower, upper].
	TranslateSubtree(ctx context.Context, lower, upper, nodeOffset, levelOffset int32) error
}

type gormRangeUpdater struct {
	db *gorm.DB
}

// NewRangeUpdater returns a RangeUpdater issuing range updates through
// db, which may be a transaction handle.
func NewRangeUpdater(db *gorm.DB) RangeUpdater {
	return &gormRangeUpdater{db: db}
}

func (u *gormRangeUpdater) ShiftRange(ctx context.Context, op ShiftOp) error {
	if op.Column != ColumnLft && op.Column != ColumnRgt {
		return fmt.Errorf("%w: unknown shift column %q", ErrConfiguration, op.Column)
	}
	col := string(op.Column)
	q := u.db.WithContext(ctx).Model(&models.Node{}).Where(col+" >= ?", op.Lower)
	if op.Upper < maxAxis {
		q = q.Where(col+" <= ?", op.Upper)
	}
	if err := q.Update(col, gorm.Expr(col+" + ?", op.Offset)).Error; err != nil {
		return fmt.Errorf("range shift on %s failed: %w", col, err)
	}
	return nil
}

func (u *gormRangeUpdater) TranslateSubtree(ctx context.Context, lower, upper, nodeOffset, levelOffset int32) error {
	err := u.db.WithContext(ctx).Model(&models.Node{}).
		Where("lft >= ? AND rgt <= ?", lower, upper).
		Updates(map[string]interface{}{
			"lft":   gorm.Expr("lft + ?", nodeOffset),
			"rgt":   gorm.Expr("rgt + ?", nodeOffset),
			"level": gorm.Expr("level + ?", levelOffset),
		}).Error
	if err != nil {
		return fmt.Errorf("subtree translation failed: %w", err)
	}
	return nil
}
