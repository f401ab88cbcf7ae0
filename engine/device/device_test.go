package device

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/logging"
)

func headlessContext(deviceType string) *config.Context {
	cfg := config.Default()
	cfg.Graphics.Device = deviceType
	cfg.Graphics.Headless = true
	return config.NewContext(cfg, logging.Discard())
}

func TestNewDeviceHeadlessCapabilities(t *testing.T) {
	tests := []struct {
		device    string
		wantType  common.DeviceType
		wantAsync bool
	}{
		{device: "opengl", wantType: common.DeviceTypeOpenGL, wantAsync: false},
		{device: "vulkan", wantType: common.DeviceTypeVulkan, wantAsync: true},
	}
	for _, tt := range tests {
		ctx := headlessContext(tt.device)
		d, err := NewDevice(ctx)
		if err != nil {
			t.Fatalf("NewDevice(%s): %v", tt.device, err)
		}
		if d.Type() != tt.wantType {
			t.Errorf("Type() = %v, want %v", d.Type(), tt.wantType)
		}
		if got := ctx.Capabilities().AsyncRecording; got != tt.wantAsync {
			t.Errorf("%s: context async = %v, want %v", tt.device, got, tt.wantAsync)
		}
		if !ctx.QueryGlobalState(config.StateDeviceReady) {
			t.Errorf("%s: device_ready not marked", tt.device)
		}
	}
}

func TestNewDeviceUnknownType(t *testing.T) {
	_, err := NewDevice(headlessContext("directx"))
	if !errors.Is(err, ErrUnknownDeviceType) {
		t.Fatalf("err = %v, want ErrUnknownDeviceType", err)
	}
}

func TestImmediateDeviceHasNoExternalPools(t *testing.T) {
	d := NewHeadlessDevice(common.DeviceTypeOpenGL, WithLogger(logging.Discard()))
	if pool := d.RequestExternalCommandPool(common.QueueTypeGraphics, common.GPUTypeDiscrete); pool != nil {
		t.Fatal("immediate device returned an external command pool")
	}
	if buf := d.RequestCommandBuffer(nil); buf != nil {
		t.Fatal("RequestCommandBuffer(nil) should return nil")
	}
}

func TestFlushSubmitsInReturnOrder(t *testing.T) {
	d := NewHeadlessDevice(common.DeviceTypeVulkan, WithLogger(logging.Discard()))
	pool := d.RequestExternalCommandPool(common.QueueTypeGraphics, common.GPUTypeDiscrete)

	var bufs []*CommandBuffer
	for _, name := range []string{"c", "a", "b"} {
		buf := d.RequestCommandBuffer(pool)
		buf.SetLabel(name)
		d.DrawFullScreenQuad(buf)
		d.EndCommandBuffer(buf)
		bufs = append(bufs, buf)
	}
	if pool.Allocated() != 3 {
		t.Errorf("Allocated() = %d, want 3", pool.Allocated())
	}

	d.ReturnExternalCommandBuffer(bufs[1])
	d.ReturnExternalCommandBuffer(bufs[2])
	d.ReturnExternalCommandBuffer(bufs[0])
	if len(d.Submissions()) != 0 {
		t.Fatal("buffers were submitted before FlushCommands")
	}
	d.FlushCommands(false, false)

	var labels []string
	for _, s := range d.Submissions() {
		labels = append(labels, s.Label)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, labels); diff != "" {
		t.Errorf("submission order mismatch (-want +got):\n%s", diff)
	}
	for _, b := range bufs {
		if !b.Ended() {
			t.Errorf("buffer %s was not ended", b.Label())
		}
	}
}

func TestImplicitStreamFlush(t *testing.T) {
	d := NewHeadlessDevice(common.DeviceTypeOpenGL, WithLogger(logging.Discard()))
	color, err := d.CreateTexture2D(TextureCreateInfo{Label: "color", Width: 4, Height: 4})
	if err != nil {
		t.Fatal(err)
	}
	fb, err := d.CreateFrameBuffer(FrameBufferCreateInfo{Label: "fb", ColorAttachments: []*Texture2D{color}})
	if err != nil {
		t.Fatal(err)
	}

	d.BeginRenderPass(fb, nil)
	d.DrawFullScreenQuad(nil)
	d.EndRenderPass(nil)

	d.FlushCommands(false, false)
	if len(d.Submissions()) != 0 {
		t.Fatal("implicit stream flushed without flushImplicit")
	}
	d.FlushCommands(false, true)

	subs := d.Submissions()
	if len(subs) != 1 || !subs[0].Implicit {
		t.Fatalf("submissions = %+v, want one implicit submission", subs)
	}
	want := []Command{
		{Op: OpBeginRenderPass, Resource: "fb"},
		{Op: OpDrawFullScreenQuad, Count: 6},
		{Op: OpEndRenderPass},
	}
	if diff := cmp.Diff(want, subs[0].Commands); diff != "" {
		t.Errorf("implicit commands mismatch (-want +got):\n%s", diff)
	}
}

func TestResourceCreationFailures(t *testing.T) {
	d := NewHeadlessDevice(common.DeviceTypeVulkan, WithLogger(logging.Discard()), WithFailingResources("broken"))

	if _, err := d.CreateTexture2D(TextureCreateInfo{Label: "broken", Width: 1, Height: 1}); !errors.Is(err, ErrResourceCreation) {
		t.Errorf("injected failure err = %v, want ErrResourceCreation", err)
	}
	if _, err := d.CreateTexture2D(TextureCreateInfo{Label: "empty"}); !errors.Is(err, ErrResourceCreation) {
		t.Errorf("zero size err = %v, want ErrResourceCreation", err)
	}
	if _, err := d.CreateVertexBuffer(VertexBufferCreateInfo{Label: "bad", Positions: []float32{1, 2}}); !errors.Is(err, ErrResourceCreation) {
		t.Errorf("short positions err = %v, want ErrResourceCreation", err)
	}

	a, _ := d.CreateTexture2D(TextureCreateInfo{Label: "a", Width: 2, Height: 2})
	b, _ := d.CreateTexture2D(TextureCreateInfo{Label: "b", Width: 4, Height: 4})
	if _, err := d.CreateFrameBuffer(FrameBufferCreateInfo{Label: "mismatch", ColorAttachments: []*Texture2D{a, b}}); !errors.Is(err, ErrResourceCreation) {
		t.Errorf("mismatched attachments err = %v, want ErrResourceCreation", err)
	}
}

func TestCreateVertexBufferInterleaves(t *testing.T) {
	d := NewHeadlessDevice(common.DeviceTypeVulkan, WithLogger(logging.Discard()))
	vb, err := d.CreateVertexBuffer(VertexBufferCreateInfo{
		Label:     "tri",
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:   []uint32{0, 1, 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if vb.VertexCount() != 3 || vb.IndexCount() != 3 {
		t.Errorf("counts = %d/%d, want 3/3", vb.VertexCount(), vb.IndexCount())
	}
	data := vb.native.([]float32)
	if len(data) != 24 {
		t.Fatalf("interleaved length = %d, want 24", len(data))
	}
	if diff := cmp.Diff([]float32{1, 0, 0, 0, 0, 1, 0, 0}, data[8:16]); diff != "" {
		t.Errorf("second vertex mismatch (-want +got):\n%s", diff)
	}
}
