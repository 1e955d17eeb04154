// Package render_graph implements a per-frame render graph.
//
// Client code declares buffers, textures, pipelines, and passes against a fresh RenderGraph each
// frame. Nothing touches the GPU until Compile, which
//
//  1. orders the passes by their write to read dependencies (Kahn's algorithm, declaration order
//     breaking ties) or fails with a *CycleError,
//  2. tracks the first and last schedule position of every resource use,
//  3. assigns transient uses with equal descriptors and disjoint lifetimes to shared GPU objects,
//  4. records every pass into a single command encoder through the Device interface.
//
// The resulting CompiledFrame is submitted once; readback tickets created by transfers resolve
// after submission. The engine/renderer package provides the wgpu backed Device.
//
//	g := render_graph.NewRenderGraph(render_graph.WithLabel("frame"))
//	color := g.AddTexture(render_graph.TextureDesc{Width: w, Height: h, Format: render_graph.TextureFormatRGBA8Unorm,
//		Usage: render_graph.TextureUsageRenderAttachment})
//	err := g.AddPass("main", render_graph.NodeKindRenderPass).
//		Write(color).
//		Execute(render_graph.CommandFunc(func(ctx *render_graph.PassContext) error {
//			rp, err := ctx.RenderPass()
//			if err != nil {
//				return err
//			}
//			rp.Draw(3, 1, 0, 0)
//			return nil
//		}))
//	frame, err := g.Compile(device, pipelines)
//	...
//	err = frame.Submit()
//	frame.Release()
package render_graph
