package domain

import (
	"reflect"
	"testing"
)

func mustDocument(t *testing.T, raw string) Document {
	t.Helper()
	doc, err := DocumentFromJSON([]byte(raw))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

func TestStringFallbackChain(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field Field
		want  string
	}{
		{
			name:  "flat shape wins",
			doc:   `{"name":"Ada Lovelace","candidate":{"name":"Shadow"}}`,
			field: FieldFullName,
			want:  "Ada Lovelace",
		},
		{
			name:  "nested shape fallback",
			doc:   `{"candidate":{"name":"Grace Hopper"}}`,
			field: FieldFullName,
			want:  "Grace Hopper",
		},
		{
			name:  "missing yields empty",
			doc:   `{"headline":"Engineer"}`,
			field: FieldFullName,
			want:  "",
		},
		{
			name:  "wrong type coerces to empty",
			doc:   `{"name":42}`,
			field: FieldFullName,
			want:  "",
		},
		{
			name:  "summary falls through to about",
			doc:   `{"about":"Builds compilers"}`,
			field: FieldSummary,
			want:  "Builds compilers",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mustDocument(t, tc.doc).String(tc.field)
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestStringListNormalizesArrayAndDelimited(t *testing.T) {
	array := mustDocument(t, `{"skills":["Go","SQL","Go",""]}`)
	delimited := mustDocument(t, `{"skills":"Go, SQL, Go"}`)

	want := []string{"Go", "SQL"}
	if got := array.StringList(FieldSkills); !reflect.DeepEqual(got, want) {
		t.Fatalf("array shape: expected %v, got %v", want, got)
	}
	if got := delimited.StringList(FieldSkills); !reflect.DeepEqual(got, want) {
		t.Fatalf("delimited shape: expected %v, got %v", want, got)
	}
}

func TestStringListDedupeIsCaseSensitive(t *testing.T) {
	doc := mustDocument(t, `{"skills":["go","Go","go"]}`)
	got := doc.StringList(FieldSkills)
	want := []string{"go", "Go"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestStringListEducationProjection(t *testing.T) {
	doc := mustDocument(t, `{"education":[{"degree":"BSc","school":"MIT"},{"degree":"MSc","school":"MIT"}]}`)

	degrees := doc.StringList(FieldEducationDegrees)
	if !reflect.DeepEqual(degrees, []string{"BSc", "MSc"}) {
		t.Fatalf("unexpected degrees: %v", degrees)
	}
	schools := doc.StringList(FieldEducationSchools)
	if !reflect.DeepEqual(schools, []string{"MIT"}) {
		t.Fatalf("expected schools deduplicated, got %v", schools)
	}
}

func TestStringListMalformedElementsDropped(t *testing.T) {
	doc := mustDocument(t, `{"languages":["English",7,{"x":1},"Spanish"]}`)
	got := doc.StringList(FieldLanguages)
	want := []string{"English", "Spanish"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDocumentFromJSONRejectsNonObject(t *testing.T) {
	if _, err := DocumentFromJSON([]byte(`["not","an","object"]`)); err == nil {
		t.Fatal("expected error for JSON array")
	}
	if _, err := DocumentFromJSON([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestDocumentIsEmpty(t *testing.T) {
	empty, err := DocumentFromJSON(nil)
	if err != nil {
		t.Fatalf("parse empty document: %v", err)
	}
	if !empty.IsEmpty() {
		t.Fatal("expected nil payload to be empty")
	}
	if !mustDocument(t, `{}`).IsEmpty() {
		t.Fatal("expected {} to be empty")
	}
	if mustDocument(t, `{"name":"x"}`).IsEmpty() {
		t.Fatal("expected populated document to be non-empty")
	}
}
