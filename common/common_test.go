package common

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSafeQueueFIFO(t *testing.T) {
	q := NewSafeQueue[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	if got := q.Size(); got != 5 {
		t.Fatalf("Size() = %d, want 5", got)
	}

	var got []int
	for {
		v, ok := q.TryPop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, got); diff != "" {
		t.Errorf("pop order mismatch (-want +got):\n%s", diff)
	}
	if !q.Empty() {
		t.Error("queue should be empty after draining")
	}
}

func TestSafeQueueConcurrentPush(t *testing.T) {
	q := NewSafeQueue[int]()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()
	if got := q.Size(); got != 800 {
		t.Fatalf("Size() = %d, want 800", got)
	}
	q.Clear()
	if _, ok := q.TryPop(); ok {
		t.Error("TryPop after Clear should report empty")
	}
}

func TestParseDeviceType(t *testing.T) {
	tests := []struct {
		in      string
		want    DeviceType
		wantErr bool
	}{
		{in: "opengl", want: DeviceTypeOpenGL},
		{in: " Vulkan ", want: DeviceTypeVulkan},
		{in: "vk", want: DeviceTypeVulkan},
		{in: "metal", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDeviceType(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDeviceType(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDeviceType(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDeviceType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce(0, 0, 4, 7); got != 4 {
		t.Errorf("Coalesce = %d, want 4", got)
	}
	if got := Coalesce("", ""); got != "" {
		t.Errorf("Coalesce of empty strings = %q, want empty", got)
	}
}

func TestMat4IdentityMul(t *testing.T) {
	m := ModelMatrix(Vec3{1, 2, 3}, Vec3{}, Vec3{2, 2, 2})
	if diff := cmp.Diff(m, Identity4().Mul(m)); diff != "" {
		t.Errorf("identity * m mismatch (-want +got):\n%s", diff)
	}
	if m[12] != 1 || m[13] != 2 || m[14] != 3 {
		t.Errorf("translation column = %v, want [1 2 3]", m[12:15])
	}
}

func TestLookAtTranslatesEye(t *testing.T) {
	v := LookAt(Vec3{0, 0, 5}, Vec3{0, 0, 0}, Vec3{0, 1, 0})
	if v[14] != -5 {
		t.Errorf("view z translation = %v, want -5", v[14])
	}
}
