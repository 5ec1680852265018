package danmaku

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestItemText(t *testing.T) {
	bordered := Item{Name: "ann", Body: "hi"}
	if got := bordered.Text(); got != "ann  hi" {
		t.Errorf("bordered Text = %q", got)
	}
	plain := Item{Name: "ann", Body: "hi", Variant: VariantPlain}
	if got := plain.Text(); got != "hi" {
		t.Errorf("plain Text = %q", got)
	}
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    Variant
		wantErr bool
	}{
		{"", VariantBordered, false},
		{"bordered", VariantBordered, false},
		{"PLAIN", VariantPlain, false},
		{" plain ", VariantPlain, false},
		{"fancy", VariantBordered, true},
	}
	for _, tt := range tests {
		got, err := ParseVariant(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseVariant(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLoadBacklogMapping(t *testing.T) {
	src := `
items:
  - name: alice
    avatar: https://example.com/a.png
    body: hello
    image: ic_red_packet
  - name: bob
    body: plain one
    variant: plain
`
	items, err := LoadBacklog(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if !items[0].Bordered() || !items[0].HasImage() || items[0].Avatar == "" {
		t.Errorf("item 0 = %+v", items[0])
	}
	if items[1].Variant != VariantPlain {
		t.Errorf("item 1 variant = %v", items[1].Variant)
	}
}

func TestLoadBacklogSequence(t *testing.T) {
	items, err := LoadBacklog(strings.NewReader("- body: a\n- body: b\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[1].Body != "b" {
		t.Errorf("items = %+v", items)
	}
}

func TestLoadBacklogErrors(t *testing.T) {
	if _, err := LoadBacklog(strings.NewReader("- body: a\n  variant: weird\n")); err == nil {
		t.Error("unknown variant accepted")
	}
	items, err := LoadBacklog(strings.NewReader(""))
	if err != nil || len(items) != 0 {
		t.Errorf("empty backlog = %v, %v", items, err)
	}
}

func TestVariantJSON(t *testing.T) {
	data, err := json.Marshal(Item{Body: "x", Variant: VariantPlain})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"variant":"plain"`) {
		t.Errorf("json = %s", data)
	}
	var it Item
	if err := json.Unmarshal([]byte(`{"body":"y","variant":"plain"}`), &it); err != nil {
		t.Fatal(err)
	}
	if it.Variant != VariantPlain {
		t.Errorf("Variant = %v", it.Variant)
	}
}
