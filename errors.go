package sprig

import "errors"

// Capacity errors. These are recoverable: callers may fall back to an unshared
// resource.
var (
	// ErrImageTooLarge is returned when an image can never fit an atlas of the
	// bin's configured size. Check AtlasBin.CanHold before adding.
	ErrImageTooLarge = errors.New("sprig: image too large for atlas")

	// ErrAtlasLimit is returned when the bin already holds MaxAtlases atlases
	// and none of them has room.
	ErrAtlasLimit = errors.New("sprig: atlas limit reached")

	// ErrDomainFull is returned when a vertex domain would have to grow past
	// its configured maximum capacity.
	ErrDomainFull = errors.New("sprig: vertex domain capacity exhausted")
)

// Handle errors. These indicate a use-after-free elsewhere in the caller.
var (
	// ErrInvalidAllocation is returned when deallocating an unknown, stale or
	// already freed rectangle allocation.
	ErrInvalidAllocation = errors.New("sprig: invalid or freed allocation")

	// ErrInvalidRange is returned when freeing an element range that was never
	// allocated.
	ErrInvalidRange = errors.New("sprig: invalid element range")

	// ErrInterfacerDeleted is returned by operations on a deleted interfacer,
	// including a second Delete.
	ErrInterfacerDeleted = errors.New("sprig: interfacer already deleted")

	// ErrStaleGroup is returned when a GroupID no longer refers to a live group.
	ErrStaleGroup = errors.New("sprig: stale draw group")

	// ErrForeignList is returned when an interfacer is placed in a draw list
	// owned by a different batch than its vertex domain.
	ErrForeignList = errors.New("sprig: draw list belongs to another batch")
)

// Contract errors.
var (
	// ErrInvalidConfig is returned for construction parameters outside their
	// documented ranges.
	ErrInvalidConfig = errors.New("sprig: invalid configuration")

	// ErrLeafGroup is returned when attaching a child to a group that owns an
	// interfacer, or an interfacer to a group that has children.
	ErrLeafGroup = errors.New("sprig: leaf group cannot have children")

	// ErrRootGroup is returned when removing or reordering a list's root group.
	ErrRootGroup = errors.New("sprig: root group cannot be modified")

	// ErrAttributeMismatch is returned when migrating an interfacer into a
	// domain with a different attribute bundle.
	ErrAttributeMismatch = errors.New("sprig: attribute formats do not match")

	// ErrUnknownAttribute is returned when addressing an attribute the domain
	// does not carry.
	ErrUnknownAttribute = errors.New("sprig: unknown attribute")

	// ErrDataOverflow is returned when a write would cross the end of the
	// interfacer's element range.
	ErrDataOverflow = errors.New("sprig: data exceeds interfacer range")

	// ErrIndexOutOfRange is returned when a local index refers past the
	// interfacer's vertex count.
	ErrIndexOutOfRange = errors.New("sprig: index out of range")

	// ErrReentrantDraw is returned when a draw list is drawn or compiled while
	// it is already being compiled or replayed.
	ErrReentrantDraw = errors.New("sprig: reentrant draw list use")
)
