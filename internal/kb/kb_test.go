package kb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testCategories() []Category {
	return []Category{
		{
			Name:     "Login Issues",
			Keywords: []string{"login", "password"},
			Question: "Are you having trouble with your password?",
			Options:  []string{"Yes, forgot password", "No, other login issue"},
			Responses: map[string]Branch{
				"Yes, forgot password": {
					Message: "Reset it from the login page.",
					Options: []string{"Yes, problem solved!", "No, still having issues"},
				},
			},
		},
		{
			Name:     "Payment Problems",
			Keywords: []string{"payment", "refund"},
			Question: "What type of payment issue are you experiencing?",
			Options:  []string{"Payment failed", "Refund request"},
		},
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name       string
		categories []Category
		wantErr    string
	}{
		{"empty", nil, "no categories"},
		{
			"missing name",
			[]Category{{Keywords: []string{"x"}, Question: "q"}},
			"name is required",
		},
		{
			"duplicate name",
			[]Category{
				{Name: "A", Keywords: []string{"x"}, Question: "q"},
				{Name: "A", Keywords: []string{"y"}, Question: "q"},
			},
			"duplicate category",
		},
		{
			"missing keywords",
			[]Category{{Name: "A", Question: "q"}},
			"keywords are required",
		},
		{
			"missing question",
			[]Category{{Name: "A", Keywords: []string{"x"}}},
			"question is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.categories)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestDetectFirstCategoryWins(t *testing.T) {
	k, err := New(testCategories())
	if err != nil {
		t.Fatal(err)
	}

	// "password" and "refund" both hit, but Login Issues is listed first.
	got, ok := k.Detect("I forgot my PASSWORD and want a refund")
	if !ok || got != "Login Issues" {
		t.Errorf("Detect = %q, %v; want Login Issues, true", got, ok)
	}

	got, ok = k.Detect("my refund never arrived")
	if !ok || got != "Payment Problems" {
		t.Errorf("Detect = %q, %v; want Payment Problems, true", got, ok)
	}

	if _, ok := k.Detect("hello there"); ok {
		t.Error("Detect matched a message with no keywords")
	}
}

func TestDetectIsDeterministic(t *testing.T) {
	k, err := New(testCategories())
	if err != nil {
		t.Fatal(err)
	}
	first, _ := k.Detect("password refund")
	for i := 0; i < 50; i++ {
		got, _ := k.Detect("password refund")
		if got != first {
			t.Fatalf("iteration %d: Detect = %q, want %q", i, got, first)
		}
	}
}

func TestBranchLookup(t *testing.T) {
	k, err := New(testCategories())
	if err != nil {
		t.Fatal(err)
	}

	b, ok := k.Branch("Login Issues", "Yes, forgot password")
	if !ok {
		t.Fatal("expected branch")
	}
	if b.Message == "" || len(b.Options) != 2 {
		t.Errorf("unexpected branch: %+v", b)
	}

	if _, ok := k.Branch("Login Issues", "nope"); ok {
		t.Error("unknown option should not resolve")
	}
	if _, ok := k.Branch("Unknown", "Yes, forgot password"); ok {
		t.Error("unknown category should not resolve")
	}
}

func TestNamesReturnsCopy(t *testing.T) {
	k, err := New(testCategories())
	if err != nil {
		t.Fatal(err)
	}
	names := k.Names()
	if len(names) != 2 || names[0] != "Login Issues" || names[1] != "Payment Problems" {
		t.Fatalf("Names = %v", names)
	}
	names[0] = "mutated"
	if k.Names()[0] != "Login Issues" {
		t.Error("Names exposed internal state")
	}
}

func TestDefault(t *testing.T) {
	k, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	names := k.Names()
	if len(names) != 4 {
		t.Fatalf("expected 4 built-in categories, got %v", names)
	}
	if names[0] != "Login Issues" {
		t.Errorf("first category = %q, want Login Issues", names[0])
	}

	cat, ok := k.Category("Login Issues")
	if !ok {
		t.Fatal("missing Login Issues")
	}
	if cat.Question != "Are you having trouble with your password?" {
		t.Errorf("question = %q", cat.Question)
	}
	if _, ok := k.Branch("Technical Support", "Error messages"); !ok {
		t.Error("missing Technical Support branch")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.yaml")
	content := `categories:
  - name: Shipping
    keywords: [shipping, delivery]
    question: What happened to your order?
    options: [Late, Lost]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	k, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := k.Detect("my delivery is late"); !ok || got != "Shipping" {
		t.Errorf("Detect = %q, %v", got, ok)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing file")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	os.WriteFile(path, []byte("categories: [not a map"), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
