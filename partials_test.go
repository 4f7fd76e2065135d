package mustache

import "testing"

func TestSliceProviderOverride(t *testing.T) {
	sp := &SliceProvider{
		Entries: []PartialEntry{
			{Name: "greeting", Template: "hello"},
			{Name: "greeting", Template: "hi"},
		},
	}
	got, err := sp.Get("greeting")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hi" {
		t.Errorf("expected the later entry to shadow the earlier one, got %q", got)
	}

	missing, err := sp.Get("nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != "" {
		t.Errorf("expected empty string for an unknown partial, got %q", missing)
	}
}

func TestSliceProviderRender(t *testing.T) {
	sp := &SliceProvider{
		Entries: []PartialEntry{
			{Name: "footer", Template: "bye {{name}}"},
		},
	}
	tmpl, err := New().WithPartials(sp).CompileString("hi {{name}}, {{>footer}}")
	if err != nil {
		t.Fatal(err)
	}
	out, err := tmpl.Render(map[string]string{"name": "Amy"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "hi Amy, bye Amy" {
		t.Errorf("got %q", out)
	}
}

func TestNewYAMLPartials(t *testing.T) {
	doc := []byte("greeting: \"hello {{name}}\"\nfarewell: \"bye {{name}}\"\n")
	sp, err := NewYAMLPartials(doc)
	if err != nil {
		t.Fatal(err)
	}
	tmpl, err := New().WithPartials(sp).CompileString("{{>greeting}} / {{>farewell}}")
	if err != nil {
		t.Fatal(err)
	}
	out, err := tmpl.Render(map[string]string{"name": "Sam"})
	if err != nil {
		t.Fatal(err)
	}
	expected := "hello Sam / bye Sam"
	if out != expected {
		t.Errorf("got %q, want %q", out, expected)
	}
}

func TestNewYAMLPartialsInvalidDocument(t *testing.T) {
	_, err := NewYAMLPartials([]byte("not: [valid: yaml"))
	if err == nil {
		t.Fatal("expected an error decoding malformed yaml")
	}
}
