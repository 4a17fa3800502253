package registry

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/juju/errors"
	"github.com/rs/zerolog"
)

const builtin = `
[[schemas]]
component_id = "aws-ec2"
category = "Compute"

  [[schemas.fields]]
  key = "instanceType"
  type = "enum"
  default = "t3.micro"
  options = ["t3.micro", "t3.small", "t3.medium"]

  [[schemas.fields]]
  key = "hoursPerMonth"
  label = "Hours per Month"
  type = "int"
  default = 730
  validate = "min=0,max=744"

[[schemas]]
category = "Storage"

  [[schemas.fields]]
  key = "storageGB"
  type = "int"
  validate = "min=0"
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"schemas/aws.toml":      {Data: []byte(builtin)},
		"schemas/README.md":     {Data: []byte("ignored")},
		"schemas/nested/x.toml": {Data: []byte("not = [valid")},
	}
}

func TestLoadFromFS(t *testing.T) {
	reg, err := LoadFromFS(testFS(), "schemas")
	if err != nil {
		t.Fatalf("LoadFromFS failed: %v", err)
	}
	if len(reg.All()) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(reg.All()))
	}

	s, ok := reg.Lookup("aws-ec2", "Compute")
	if !ok {
		t.Fatal("aws-ec2 not found")
	}
	if len(s.Fields) != 2 || s.Fields[0].Options[2] != "t3.medium" {
		t.Errorf("unexpected fields %+v", s.Fields)
	}
}

func TestLoadFromFS_BadFile(t *testing.T) {
	fsys := fstest.MapFS{"schemas/bad.toml": {Data: []byte("[[schemas]\n")}}
	if _, err := LoadFromFS(fsys, "schemas"); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadFromFS(fsys, "missing"); err == nil {
		t.Error("expected error for missing dir")
	}
}

func TestLookup_FallsBackToCategory(t *testing.T) {
	reg, _ := LoadFromFS(testFS(), "schemas")

	s, ok := reg.Lookup("gcp-bucket", "Storage")
	if !ok || s.Fields[0].Key != "storageGB" {
		t.Errorf("expected Storage fallback, got %+v %v", s, ok)
	}
	if _, ok := reg.Lookup("gcp-vm", "Compute"); ok {
		t.Error("Compute has no category schema")
	}

	var nilReg *Registry
	if _, ok := nilReg.Lookup("aws-ec2", "Compute"); ok {
		t.Error("nil registry should find nothing")
	}
}

func TestFields_InferredWithoutSchema(t *testing.T) {
	reg := New(nil)
	fields := reg.Fields("custom", "Compute", map[string]any{
		"region":   "eu-west-1",
		"replicas": float64(3),
		"ratio":    0.5,
	})
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	want := map[string]FieldType{"ratio": TypeFloat, "region": TypeString, "replicas": TypeInt}
	for _, f := range fields {
		if f.Type != want[f.Key] {
			t.Errorf("%s: expected %s, got %s", f.Key, want[f.Key], f.Type)
		}
	}
	if fields[0].Key != "ratio" {
		t.Errorf("fields should be sorted, got %s first", fields[0].Key)
	}
}

func TestLoadAll_PluginOverrides(t *testing.T) {
	pluginDir := t.TempDir()
	plugin := `
[[schemas]]
component_id = "aws-ec2"
category = "Compute"

  [[schemas.fields]]
  key = "instanceType"
  type = "enum"
  options = ["m5.large"]

[[schemas]]
component_id = "gcp-vm"
category = "Compute"
`
	os.WriteFile(filepath.Join(pluginDir, "custom.toml"), []byte(plugin), 0o644)
	os.WriteFile(filepath.Join(pluginDir, "broken.toml"), []byte("[[schemas"), 0o644)

	reg, err := LoadAll(testFS(), "schemas", pluginDir, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(reg.All()) != 3 {
		t.Errorf("expected 3 schemas, got %d", len(reg.All()))
	}
	s, _ := reg.Lookup("aws-ec2", "")
	if len(s.Fields) != 1 || s.Fields[0].Options[0] != "m5.large" {
		t.Errorf("plugin should override built-in, got %+v", s.Fields)
	}
	if reg.All()[0].ComponentID != "aws-ec2" {
		t.Errorf("override should keep the built-in position")
	}
}

func TestLoadAll_NoPluginDir(t *testing.T) {
	reg, err := LoadAll(testFS(), "schemas", filepath.Join(t.TempDir(), "absent"), zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(reg.All()) != 2 {
		t.Errorf("expected 2 schemas, got %d", len(reg.All()))
	}
}

func TestFieldParse(t *testing.T) {
	enum := Field{Key: "instanceType", Type: TypeEnum, Options: []string{"t3.micro", "t3.small"}}
	hours := Field{Key: "hoursPerMonth", Label: "Hours per Month", Type: TypeInt, Validate: "min=0,max=744"}
	ratio := Field{Key: "ratio", Type: TypeFloat, Validate: "gte=0,lte=1"}
	name := Field{Key: "name", Type: TypeString, Validate: "required"}

	tests := []struct {
		field Field
		raw   string
		want  any
		ok    bool
	}{
		{enum, "t3.small", "t3.small", true},
		{enum, "m5.large", nil, false},
		{hours, " 730 ", 730, true},
		{hours, "800", nil, false},
		{hours, "-1", nil, false},
		{hours, "7.5", nil, false},
		{ratio, "0.25", 0.25, true},
		{ratio, "1.5", nil, false},
		{ratio, "NaN", nil, false},
		{name, "edge", "edge", true},
		{name, "", nil, false},
	}
	for _, tt := range tests {
		got, err := tt.field.Parse(tt.raw)
		if tt.ok {
			if err != nil {
				t.Errorf("%s %q: unexpected error %v", tt.field.Key, tt.raw, err)
			} else if got != tt.want {
				t.Errorf("%s %q: expected %v, got %v", tt.field.Key, tt.raw, tt.want, got)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("%s %q: expected ErrInvalidValue, got %v", tt.field.Key, tt.raw, err)
		}
	}
}
