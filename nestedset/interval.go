package nestedset

import "fmt"

// Column identifies which interval bound a range shift applies to.
type Column string

const (
	ColumnLft Column = "lft"
	ColumnRgt Column = "rgt"
)

// maxAxis is the top of the shared interval axis. A computed bound past
// it is an invariant violation, never a silent wrap.
const maxAxis int32 = 1<<31 - 1

// ShiftOp is a single range update: column += Offset for every row
// whose column value lies in [Lower, Upper]. The executor applies these
// exactly as ordered; gap opens must run before the writes they make
// room for, gap closes after.
type ShiftOp struct {
	Column Column
	Offset int32
	Lower  int32
	Upper  int32
}

// openGap returns the shifts that free width contiguous axis slots
// starting at position at. Every lft >= at and every rgt >= at moves up
// by width; the two ops touch independent columns, so no row is shifted
// twice. Interval widths are always even (two slots per node).
func openGap(at, width int32) ([2]ShiftOp, error) {
	if width <= 0 || width%2 != 0 {
		return [2]ShiftOp{}, fmt.Errorf("%w: gap width %d", ErrInvariantViolation, width)
	}
	if at < 1 {
		return [2]ShiftOp{}, fmt.Errorf("%w: gap position %d before axis start", ErrInvariantViolation, at)
	}
	if int64(maxAxis)-int64(width) < int64(at) {
		return [2]ShiftOp{}, fmt.Errorf("%w: axis overflow opening gap of %d at %d", ErrInvariantViolation, width, at)
	}
	return [2]ShiftOp{
		{Column: ColumnLft, Offset: width, Lower: at, Upper: maxAxis},
		{Column: ColumnRgt, Offset: width, Lower: at, Upper: maxAxis},
	}, nil
}

// closeGap returns the shifts that collapse a vacated gap of width
// slots whose last slot is after. Every lft > after and every rgt >
// after moves down by width.
func closeGap(after, width int32) ([2]ShiftOp, error) {
	if width <= 0 || width%2 != 0 {
		return [2]ShiftOp{}, fmt.Errorf("%w: gap width %d", ErrInvariantViolation, width)
	}
	if after-width < 0 {
		return [2]ShiftOp{}, fmt.Errorf("%w: closing gap of %d at %d underflows axis", ErrInvariantViolation, width, after)
	}
	return [2]ShiftOp{
		{Column: ColumnLft, Offset: -width, Lower: after + 1, Upper: maxAxis},
		{Column: ColumnRgt, Offset: -width, Lower: after + 1, Upper: maxAxis},
	}, nil
}

// movePlan is the per-subtree translation for one relocation, computed
// against post-gap-open coordinates.
type movePlan struct {
	// srcLft/srcRgt bound the moving subtree after the destination gap
	// has been opened (the open shifts the source too when the
	// destination precedes it on the axis).
	srcLft, srcRgt int32
	// nodeOffset is added to lft and rgt of every row in the subtree.
	nodeOffset int32
	// levelOffset is added to level of every row in the subtree.
	levelOffset int32
}

// moveOffsets computes the translation for a subtree [srcLft, srcRgt]
// relocating into a gap of the subtree's width opened at axis position
// at (pre-open coordinate). dstLevel is the level the subtree's root
// takes at the destination.
//
// The subsequent closeGap at srcRgt' intentionally shifts the moved
// rows again when the destination lies after the source; the landing
// position accounts for that.
func moveOffsets(srcLft, srcRgt, at, srcLevel, dstLevel int32) (movePlan, error) {
	if srcLft >= srcRgt {
		return movePlan{}, fmt.Errorf("%w: source interval [%d, %d]", ErrInvariantViolation, srcLft, srcRgt)
	}
	width := srcRgt - srcLft + 1
	p := movePlan{srcLft: srcLft, srcRgt: srcRgt, levelOffset: dstLevel - srcLevel}
	if srcLft >= at {
		// destination before source: the open pushed the source up
		if int64(srcRgt)+int64(width) > int64(maxAxis) {
			return movePlan{}, fmt.Errorf("%w: axis overflow relocating [%d, %d]", ErrInvariantViolation, srcLft, srcRgt)
		}
		p.srcLft += width
		p.srcRgt += width
	}
	p.nodeOffset = at - p.srcLft
	if int64(srcLevel)+int64(p.levelOffset) < 0 {
		return movePlan{}, fmt.Errorf("%w: negative level for moved subtree", ErrInvariantViolation)
	}
	return p, nil
}
