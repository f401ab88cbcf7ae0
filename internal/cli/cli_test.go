package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := New(&out, &errOut).RootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	out, err := execute(t, "config")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `device = "vulkan"`) {
		t.Errorf("config output missing device:\n%s", out)
	}

	out, err = execute(t, "config", "--format", "yaml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "device: vulkan") {
		t.Errorf("yaml output missing device:\n%s", out)
	}

	if _, err := execute(t, "config", "--format", "xml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxygraph.toml")
	data := "[graphics]\ndevice = \"opengl\"\n\n[log]\nlevel = \"error\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "--config", path, "config")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `device = "opengl"`) {
		t.Errorf("config file was not applied:\n%s", out)
	}
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"digraph", `"ShadowMap" -> "Opaque"`, `"Blend" -> "DOF"`} {
		if !strings.Contains(out, want) {
			t.Errorf("graph output missing %s:\n%s", want, out)
		}
	}

	if _, err := execute(t, "graph", "--renderer", "bogus"); err == nil {
		t.Error("expected an error for an unknown renderer")
	}
}

func TestRunCommandHeadless(t *testing.T) {
	out, err := execute(t, "run", "--headless", "--frames", "3", "--entities", "4")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"frames: 3",
		"async recording: true",
		"script updates: 12",
		"renderer standard: nodes=9 frames=3 parallel=true",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("run output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommandSequentialDevice(t *testing.T) {
	out, err := execute(t, "run", "--headless", "--frames", "2", "--entities", "1", "--device", "opengl")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "parallel=false") {
		t.Errorf("opengl run should draw sequentially:\n%s", out)
	}

	if _, err := execute(t, "run", "--headless", "--entities=-1"); err == nil {
		t.Error("expected an error for a negative entity count")
	}
}

func TestRunCommandRejectsUnknownModel(t *testing.T) {
	if _, err := execute(t, "run", "--headless", "--frames", "1", "--mesh", "scene.obj"); err == nil {
		t.Error("expected an error for an unsupported model format")
	}
}
