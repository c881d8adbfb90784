// Package ecs provides ECS adapters for sprig drawables.
//
// [SpriteComponent] attaches a [sprig.Sprite] to a [Donburi] entity.
// [SyncSprites] pushes every sprite's changes into its batch once per frame,
// and [CullSprites] hides sprites outside a camera. Entities whose sprite was
// deleted are removed from the world and announced as [SpriteRemovedEvent].
//
// Usage:
//
//	e := ecs.AddSprite(world, sprite)
//	// each frame
//	ecs.CullSprites(world, camera)
//	ecs.SyncSprites(world)
//	ecs.SpriteRemovedEvent.ProcessEvents(world)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
