package rendertest

import (
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

const (
	OpBeginRenderPass     = "BeginRenderPass"
	OpEndRenderPass       = "EndRenderPass"
	OpSetViewport         = "SetViewport"
	OpSetScissor          = "SetScissor"
	OpBindPipeline        = "BindPipeline"
	OpBindDescriptorSets  = "BindDescriptorSets"
	OpPushConstants       = "PushConstants"
	OpBindVertexBuffer    = "BindVertexBuffer"
	OpBindIndexBuffer     = "BindIndexBuffer"
	OpDraw                = "Draw"
	OpDrawIndexed         = "DrawIndexed"
	OpBindComputePipeline = "BindComputePipeline"
	OpDispatch            = "Dispatch"
	OpTransition          = "TransitionImageLayout"
	OpCopyImage           = "CopyImage"
	OpClearDepthImage     = "ClearDepthImage"
)

// Call is one recorded command. Only the fields relevant to Op are set.
type Call struct {
	Op              string
	Pass            *metadata.RenderPass
	Framebuffer     *metadata.Framebuffer
	ClearValues     []metadata.ClearValue
	Pipeline        *metadata.Pipeline
	ComputePipeline *metadata.ComputePipeline
	FirstSet        uint32
	Sets            []*metadata.DescriptorSet
	Data            []byte
	Buffer          *metadata.Buffer
	Count           uint32
	Image           *metadata.Image
	Dst             *metadata.Image
	From            metadata.ImageLayout
	To              metadata.ImageLayout
	Layer           uint32
	LayerCount      uint32
	Groups          [3]uint32
}

type CommandBuffer struct {
	Calls []Call
}

func (c *CommandBuffer) record(call Call) {
	c.Calls = append(c.Calls, call)
}

// Ops returns the recorded operation names in order.
func (c *CommandBuffer) Ops() []string {
	ops := make([]string, len(c.Calls))
	for i, call := range c.Calls {
		ops[i] = call.Op
	}
	return ops
}

// Filter returns the recorded calls of one operation in order.
func (c *CommandBuffer) Filter(op string) []Call {
	var calls []Call
	for _, call := range c.Calls {
		if call.Op == op {
			calls = append(calls, call)
		}
	}
	return calls
}

func (c *CommandBuffer) Count(op string) int {
	return len(c.Filter(op))
}

// PassOrder returns the name of every render pass begun, in order.
func (c *CommandBuffer) PassOrder() []string {
	var names []string
	for _, call := range c.Filter(OpBeginRenderPass) {
		names = append(names, call.Pass.Config.Name)
	}
	return names
}

func (c *CommandBuffer) BeginRenderPass(pass *metadata.RenderPass, framebuffer *metadata.Framebuffer, clearValues []metadata.ClearValue) {
	c.record(Call{Op: OpBeginRenderPass, Pass: pass, Framebuffer: framebuffer, ClearValues: clearValues})
}

func (c *CommandBuffer) EndRenderPass() {
	c.record(Call{Op: OpEndRenderPass})
}

func (c *CommandBuffer) SetViewport(x, y, width, height float32) {
	c.record(Call{Op: OpSetViewport})
}

func (c *CommandBuffer) SetScissor(x, y int32, width, height uint32) {
	c.record(Call{Op: OpSetScissor})
}

func (c *CommandBuffer) BindPipeline(pipeline *metadata.Pipeline) {
	c.record(Call{Op: OpBindPipeline, Pipeline: pipeline})
}

func (c *CommandBuffer) BindDescriptorSets(pipeline *metadata.Pipeline, firstSet uint32, sets ...*metadata.DescriptorSet) {
	c.record(Call{Op: OpBindDescriptorSets, Pipeline: pipeline, FirstSet: firstSet, Sets: sets})
}

func (c *CommandBuffer) PushConstants(pipeline *metadata.Pipeline, data []byte) {
	c.record(Call{Op: OpPushConstants, Pipeline: pipeline, Data: append([]byte(nil), data...)})
}

func (c *CommandBuffer) BindVertexBuffer(buffer *metadata.Buffer) {
	c.record(Call{Op: OpBindVertexBuffer, Buffer: buffer})
}

func (c *CommandBuffer) BindIndexBuffer(buffer *metadata.Buffer) {
	c.record(Call{Op: OpBindIndexBuffer, Buffer: buffer})
}

func (c *CommandBuffer) Draw(vertexCount uint32) {
	c.record(Call{Op: OpDraw, Count: vertexCount})
}

func (c *CommandBuffer) DrawIndexed(indexCount uint32) {
	c.record(Call{Op: OpDrawIndexed, Count: indexCount})
}

func (c *CommandBuffer) BindComputePipeline(pipeline *metadata.ComputePipeline) {
	c.record(Call{Op: OpBindComputePipeline, ComputePipeline: pipeline})
}

func (c *CommandBuffer) BindComputeDescriptorSets(pipeline *metadata.ComputePipeline, sets ...*metadata.DescriptorSet) {
	c.record(Call{Op: OpBindDescriptorSets, ComputePipeline: pipeline, Sets: sets})
}

func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	c.record(Call{Op: OpDispatch, Groups: [3]uint32{x, y, z}})
}

func (c *CommandBuffer) TransitionImageLayout(image *metadata.Image, from, to metadata.ImageLayout, baseLayer, layerCount uint32) {
	c.record(Call{Op: OpTransition, Image: image, From: from, To: to, Layer: baseLayer, LayerCount: layerCount})
}

func (c *CommandBuffer) CopyImage(src, dst *metadata.Image, dstLayer uint32) {
	c.record(Call{Op: OpCopyImage, Image: src, Dst: dst, Layer: dstLayer})
}

func (c *CommandBuffer) ClearDepthImage(image *metadata.Image, depth float32) {
	c.record(Call{Op: OpClearDepthImage, Image: image})
}

var _ metadata.CommandBuffer = (*CommandBuffer)(nil)
