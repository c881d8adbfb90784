// Package sprig is a batched 2D render compiler for [Ebitengine].
//
// Sprig keeps vertex data for many drawables in a few shared buffers and
// compiles a tree of draw groups into a short list of state changes and
// indexed draws. The compiled list is cached and only rebuilt when the tree
// or a drawable's state changes, so a static scene costs one replay per
// frame no matter how many sprites it holds.
//
// # Quick start
//
// Create a [Batch], add drawables, and replay the default list into an
// [EbitenDriver] from your game's Draw:
//
//	batch, _ := sprig.NewBatch(sprig.Config{})
//	region, _, _ := batch.AddImage(heroImage)
//	hero, _ := sprig.NewSprite(batch, region, sprig.Placement{})
//	hero.SetPosition(100, 50)
//
//	func (g *Game) Draw(screen *ebiten.Image) {
//		g.hero.Update()
//		g.driver.SetTarget(screen)
//		g.driver.SetView(g.camera.ViewMatrix())
//		g.batch.Draw(g.driver)
//	}
//
// # Building blocks
//
// A [VertexDomain] holds one buffer per vertex attribute, all sharing one
// layout such as "position:2f,texcoord:2f,color:4f". An [Interfacer] is a
// contiguous claim of vertices in a domain together with its local indices,
// draw mode, and [State].
//
// A [State] is a set of [StatePart] values: program, textures, blend mode,
// uniforms, and scissor. Group states merge down the tree; switching between
// two states emits only the parts that differ.
//
// A [DrawList] owns the group tree. [DrawList.AddGroup] adds structural
// groups with a sibling order; every interfacer sits in its own leaf group.
// Hidden interfacers and empty groups are pruned during compilation.
//
// Images are packed into [TextureAtlas] pages by an [AtlasBin] using a
// guillotine [RectAllocator]. Sprites drawn from the same atlas share one
// texture state and batch into a single draw.
//
// # Drawables
//
// [Sprite] is a textured quad; [Mesh] and [NewPolygon] draw arbitrary
// triangles. Both embed a [Transform] and write their vertices on Update.
// [Text], [ParticleEmitter] and [TileLayer] keep many quads in one
// interfacer and hide unused slots as degenerate quads, so churn in their
// contents never recompiles the list.
//
// A [RenderTexture] is an offscreen canvas that a draw list can be rendered
// into and that sprites can show; [LightLayer] builds on it.
// [Camera] produces the view matrix and culls drawables outside the view;
// [TweenPosition] and friends animate drawables via [gween].
//
// # Logging
//
// Sprig logs through [logrus]. Replace the logger with [SetLogger]; set
// [Config.Debug] to log per-compile statistics.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [logrus]: https://github.com/sirupsen/logrus
package sprig
