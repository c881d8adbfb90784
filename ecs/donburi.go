package ecs

import (
	"errors"
	"fmt"

	"github.com/phanxgames/sprig"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
)

// SpriteData is the component payload linking an entity to its sprite.
type SpriteData struct {
	Sprite *sprig.Sprite
}

// SpriteComponent is the Donburi component type carrying a sprite.
var SpriteComponent = donburi.NewComponentType[SpriteData]()

// SpriteRemoved is published when SyncSprites drops an entity whose sprite
// was deleted.
type SpriteRemoved struct {
	Entity donburi.Entity
}

// SpriteRemovedEvent is the Donburi event type for removed sprite entities.
var SpriteRemovedEvent = events.NewEventType[SpriteRemoved]()

var spriteQuery = donburi.NewQuery(filter.Contains(SpriteComponent))

// AddSprite creates an entity carrying s.
func AddSprite(world donburi.World, s *sprig.Sprite) donburi.Entity {
	e := world.Create(SpriteComponent)
	SpriteComponent.SetValue(world.Entry(e), SpriteData{Sprite: s})
	return e
}

// SpriteOf returns the sprite of an entity, or nil if it has none.
func SpriteOf(world donburi.World, e donburi.Entity) *sprig.Sprite {
	if !world.Valid(e) {
		return nil
	}
	entry := world.Entry(e)
	if !entry.HasComponent(SpriteComponent) {
		return nil
	}
	return SpriteComponent.Get(entry).Sprite
}

// SyncSprites calls Update on every live sprite. Entities whose sprite has
// been deleted are removed and published as SpriteRemoved. The first update
// error is returned after all sprites were visited.
func SyncSprites(world donburi.World) error {
	var (
		dead []donburi.Entity
		errs []error
	)
	spriteQuery.Each(world, func(entry *donburi.Entry) {
		s := SpriteComponent.Get(entry).Sprite
		if s == nil || s.Interfacer().Deleted() {
			dead = append(dead, entry.Entity())
			return
		}
		if err := s.Update(); err != nil {
			errs = append(errs, fmt.Errorf("entity %v: %w", entry.Entity(), err))
		}
	})
	for _, e := range dead {
		world.Remove(e)
		SpriteRemovedEvent.Publish(world, SpriteRemoved{Entity: e})
	}
	return errors.Join(errs...)
}

// CullSprites hides sprites outside the camera view and shows the rest. It
// returns the number hidden.
func CullSprites(world donburi.World, cam *sprig.Camera) (int, error) {
	items := make([]sprig.Cullable, 0, spriteQuery.Count(world))
	spriteQuery.Each(world, func(entry *donburi.Entry) {
		if s := SpriteComponent.Get(entry).Sprite; s != nil && !s.Interfacer().Deleted() {
			items = append(items, s)
		}
	})
	return cam.Cull(items...)
}
