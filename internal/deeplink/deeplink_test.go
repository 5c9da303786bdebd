package deeplink

import (
	"reflect"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"took://card-share/42?save=true", "card-share/42"},
		{"took://card-share/42", "card-share/42"},
		{"took://received/interesting", "received/interesting"},
		{"took://card-notes?cardId=1&noteId=2", "card-notes"},
		{"card-detail/7?type=given", "card-detail/7"},
		{"took://", ""},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.raw, "took"); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestParse_DecodesFirstQueryValue(t *testing.T) {
	link, err := Parse("took://card-notes/detail?noteId=a%20b&noteId=c&cardId=9", "took")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if link.Path != "card-notes/detail" {
		t.Fatalf("Path = %q, want %q", link.Path, "card-notes/detail")
	}
	if got := link.Param("noteId"); got != "a b" {
		t.Fatalf("noteId = %q, want %q", got, "a b")
	}
	if got := link.Param("cardId"); got != "9" {
		t.Fatalf("cardId = %q, want %q", got, "9")
	}
	if got := link.Param("missing"); got != "" {
		t.Fatalf("missing = %q, want empty", got)
	}
}

func TestParse_MalformedEscapeFails(t *testing.T) {
	if _, err := Parse("took://card-share/%zz", "took"); err == nil {
		t.Fatalf("Parse returned nil error, want escape error")
	}
}

func TestFirstSegment(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"card-share/42/extra", "42"},
		{"card-share/a%20b", "a b"},
		{"card-share/a%zz", "a%zz"},
		{"card-share/", ""},
	}
	for _, tt := range tests {
		if got := firstSegment(tt.path, "card-share/"); got != tt.want {
			t.Errorf("firstSegment(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Intent
	}{
		{"interesting slash", "took://received/interesting", Interesting{}},
		{"interesting dash", "took://received-interesting", Interesting{}},
		{"notes list", "took://card-notes?cardId=5", Notes{CardID: "5"}},
		{"notes detail", "took://card-notes/detail?noteId=3&cardId=5", Notes{Detail: true, NoteID: "3", CardID: "5"}},
		{"notes other child", "took://card-notes/archive", Notes{}},
		{"card share save", "took://card-share/42?save=true", CardShare{CardID: "42", ShouldSave: true}},
		{"card share save not literal true", "took://card-share/42?save=1", CardShare{CardID: "42"}},
		{"card share trailing segments", "took://card-share/42/extra/more", CardShare{CardID: "42"}},
		{"card share empty id", "took://card-share/", CardShare{}},
		{"card share escaped id", "took://card-share/a%20b", CardShare{CardID: "a b"}},
		{"card detail default type", "took://card-detail/7", CardDetail{CardID: "7", Type: DefaultDetailType}},
		{"card detail type", "took://card-detail/7?type=given", CardDetail{CardID: "7", Type: "given"}},
		{"notes prefix is not notes", "took://card-notesx", Unknown{Path: "card-notesx"}},
		{"unknown", "took://unknown/path", Unknown{Path: "unknown/path"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, err := Parse(tt.raw, "took")
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if got := Classify(link); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Classify(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}
