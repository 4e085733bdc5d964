package conversation

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRetrieve(t *testing.T) {
	snippets := []string{
		"Treatment: Root Canal Treatment. Removes infected pulp to save the tooth. Price: PKR 25,000.",
		"Treatment: Scaling and Polishing. Professional cleaning of plaque and stains.",
		"Q: Do you treat children? A: Yes, we see patients of all ages.",
		"Branch: NeoImplant - DHA, 12-C Khayaban-e-Ittehad. Phone: +92 300 1234567.",
	}

	got := Retrieve("how much does a root canal cost", snippets, 2)
	if len(got) == 0 {
		t.Fatal("expected at least one snippet")
	}
	if got[0] != snippets[0] {
		t.Errorf("top snippet = %q, want root canal entry", got[0])
	}

	if got := Retrieve("", snippets, 2); got != nil {
		t.Errorf("empty query returned %v", got)
	}
	if got := Retrieve("zebra spaceship", snippets, 2); len(got) != 0 {
		t.Errorf("irrelevant query returned %v", got)
	}
}

func TestRetrieveLimit(t *testing.T) {
	snippets := []string{
		"scaling removes plaque",
		"polishing follows scaling",
		"scaling and polishing together",
	}
	got := Retrieve("scaling polishing", snippets, 2)
	if len(got) != 2 {
		t.Fatalf("got %d snippets, want 2", len(got))
	}
}

func TestRedisSnippetStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisSnippetStore(client)
	ctx := context.Background()

	if err := store.Replace(ctx, []string{"one", "two"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := store.Append(ctx, []string{"three"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 || all[2] != "three" {
		t.Errorf("snippets = %v", all)
	}

	if err := store.Replace(ctx, []string{"fresh"}); err != nil {
		t.Fatalf("replace again: %v", err)
	}
	all, _ = store.All(ctx)
	if len(all) != 1 || all[0] != "fresh" {
		t.Errorf("after replace = %v", all)
	}
}

func TestKnowledgeBaseSnippets(t *testing.T) {
	kb := &KnowledgeBase{
		Treatments: []Treatment{{Name: "Dental Filling", Description: "Restores decayed teeth.", Price: "PKR 8,000"}},
		FAQs:       []FAQ{{Question: "Do you accept walk-ins?", Answer: "Yes, subject to availability."}},
		ClinicInfo: ClinicInfo{
			Branches: []BranchInfo{{
				Name: "NeoImplant - DHA", Address: "12-C Khayaban-e-Ittehad", Phone: "+92 300 1234567",
				Hours: map[string]string{"monday": "10:00-20:00"},
			}},
			Team: []TeamMember{{Name: "Dr. Fatima Khan", Specialty: "Orthodontics", Branch: "NeoImplant - DHA"}},
		},
	}

	snippets := kb.Snippets()
	if len(snippets) != 4 {
		t.Fatalf("got %d snippets, want 4", len(snippets))
	}
	for _, want := range []string{"Dental Filling", "walk-ins", "Monday 10:00-20:00", "Dr. Fatima Khan"} {
		found := false
		for _, s := range snippets {
			if strings.Contains(s, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no snippet mentions %q in %v", want, snippets)
		}
	}
}
