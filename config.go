package sprig

import "fmt"

// Default construction parameters.
const (
	// DefaultAtlasSize is the default atlas dimension (1024x1024).
	DefaultAtlasSize = 1024

	// DefaultSmallSizeThreshold is the size below which (in both dimensions) a
	// rectangle goes into the small free-list bucket.
	DefaultSmallSizeThreshold = 32

	// DefaultLargeSizeThreshold is the size at or above which (in either
	// dimension) a rectangle goes into the large free-list bucket.
	DefaultLargeSizeThreshold = 512

	// DefaultInitialCapacity is the initial element capacity of a vertex domain.
	DefaultInitialCapacity = 2048
)

// AllocatorOptions configures the free-list buckets of a RectAllocator.
// Zero fields take the package defaults.
type AllocatorOptions struct {
	SmallSizeThreshold int
	LargeSizeThreshold int
}

func (o AllocatorOptions) withDefaults() AllocatorOptions {
	if o.SmallSizeThreshold == 0 {
		o.SmallSizeThreshold = DefaultSmallSizeThreshold
	}
	if o.LargeSizeThreshold == 0 {
		o.LargeSizeThreshold = DefaultLargeSizeThreshold
	}
	return o
}

func (o AllocatorOptions) validate() error {
	if o.SmallSizeThreshold <= 0 || o.SmallSizeThreshold >= o.LargeSizeThreshold {
		return fmt.Errorf("%w: need 0 < small (%d) < large (%d)",
			ErrInvalidConfig, o.SmallSizeThreshold, o.LargeSizeThreshold)
	}
	return nil
}

// AtlasConfig configures texture atlases created by an AtlasBin.
type AtlasConfig struct {
	// Width and Height are the dimensions of every atlas in the bin.
	// Zero defaults to DefaultAtlasSize.
	Width, Height int

	// Border is the number of transparent pixels kept around each image.
	Border int

	// MaxAtlases caps the number of live atlases. Zero means unlimited.
	MaxAtlases int

	// Allocator configures the rectangle packer of each atlas.
	Allocator AllocatorOptions
}

func (c AtlasConfig) withDefaults() AtlasConfig {
	if c.Width == 0 {
		c.Width = DefaultAtlasSize
	}
	if c.Height == 0 {
		c.Height = DefaultAtlasSize
	}
	c.Allocator = c.Allocator.withDefaults()
	return c
}

func (c AtlasConfig) validate() error {
	if c.Width <= 0 || c.Height <= 0 || c.Width > maxAtlasSize || c.Height > maxAtlasSize {
		return fmt.Errorf("%w: atlas size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Border < 0 || 2*c.Border >= c.Width || 2*c.Border >= c.Height {
		return fmt.Errorf("%w: atlas border %d", ErrInvalidConfig, c.Border)
	}
	if c.MaxAtlases < 0 {
		return fmt.Errorf("%w: max atlases %d", ErrInvalidConfig, c.MaxAtlases)
	}
	return c.Allocator.validate()
}

// DomainConfig configures the vertex domains created by a Batch.
type DomainConfig struct {
	// InitialCapacity is the starting element capacity of every attribute
	// buffer. Zero defaults to DefaultInitialCapacity.
	InitialCapacity int

	// MaxCapacity bounds growth. Zero means unlimited. It must be a power
	// of two so that every growth step lands on one.
	MaxCapacity int
}

func (c DomainConfig) withDefaults() DomainConfig {
	if c.InitialCapacity == 0 {
		c.InitialCapacity = DefaultInitialCapacity
	}
	return c
}

func (c DomainConfig) validate() error {
	if c.InitialCapacity <= 0 {
		return fmt.Errorf("%w: initial capacity %d", ErrInvalidConfig, c.InitialCapacity)
	}
	if c.MaxCapacity < 0 || (c.MaxCapacity > 0 && c.MaxCapacity < c.InitialCapacity) {
		return fmt.Errorf("%w: max capacity %d below initial capacity %d",
			ErrInvalidConfig, c.MaxCapacity, c.InitialCapacity)
	}
	if c.MaxCapacity > 0 && c.MaxCapacity&(c.MaxCapacity-1) != 0 {
		return fmt.Errorf("%w: max capacity %d is not a power of two", ErrInvalidConfig, c.MaxCapacity)
	}
	return nil
}

// Config holds the construction-time parameters of a Batch.
type Config struct {
	// Atlas configures the batch's texture atlas bin.
	Atlas AtlasConfig

	// Domain configures every vertex domain the batch creates.
	Domain DomainConfig

	// Debug enables per-compile statistics logged at debug level and extra
	// structural checks.
	Debug bool
}

func (c Config) withDefaults() Config {
	c.Atlas = c.Atlas.withDefaults()
	c.Domain = c.Domain.withDefaults()
	return c
}

func (c Config) validate() error {
	if err := c.Atlas.validate(); err != nil {
		return err
	}
	return c.Domain.validate()
}
