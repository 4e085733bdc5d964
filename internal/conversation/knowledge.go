package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// KnowledgeBase is the clinic's static knowledge file: treatments, FAQs,
// and location details, flattened into retrievable snippets.
type KnowledgeBase struct {
	Treatments []Treatment `json:"treatments"`
	FAQs       []FAQ       `json:"faqs"`
	ClinicInfo ClinicInfo  `json:"clinic_info"`
}

type Treatment struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type ClinicInfo struct {
	Name     string       `json:"name"`
	Phone    string       `json:"phone"`
	Branches []BranchInfo `json:"branches"`
	Team     []TeamMember `json:"team"`
}

type BranchInfo struct {
	Name    string            `json:"name"`
	Address string            `json:"address"`
	Phone   string            `json:"phone"`
	Hours   map[string]string `json:"hours"`
}

type TeamMember struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Branch    string `json:"branch"`
}

// LoadKnowledgeBase reads and parses the knowledge file.
func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("conversation: read knowledge file: %w", err)
	}
	var kb KnowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("conversation: parse knowledge file: %w", err)
	}
	return &kb, nil
}

// Snippets flattens the knowledge base into one string per fact.
func (kb *KnowledgeBase) Snippets() []string {
	var snippets []string
	for _, t := range kb.Treatments {
		s := fmt.Sprintf("Treatment: %s. %s", t.Name, t.Description)
		if t.Price != "" {
			s += fmt.Sprintf(" Price: %s.", t.Price)
		}
		snippets = append(snippets, s)
	}
	for _, f := range kb.FAQs {
		snippets = append(snippets, fmt.Sprintf("Q: %s A: %s", f.Question, f.Answer))
	}
	for _, b := range kb.ClinicInfo.Branches {
		var days []string
		for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
			if h, ok := b.Hours[day]; ok {
				days = append(days, fmt.Sprintf("%s %s", capitalizeWords(day), h))
			}
		}
		snippets = append(snippets, fmt.Sprintf("Branch: %s, %s. Phone: %s. Hours: %s.",
			b.Name, b.Address, b.Phone, strings.Join(days, ", ")))
	}
	for _, m := range kb.ClinicInfo.Team {
		snippets = append(snippets, fmt.Sprintf("Dentist: %s, %s, practicing at %s.", m.Name, m.Specialty, m.Branch))
	}
	return snippets
}

const snippetKeyPrefix = "kb:snippets:"

// SnippetStore persists knowledge snippets so support staff can add facts
// at runtime without redeploying the knowledge file.
type SnippetStore interface {
	Replace(ctx context.Context, snippets []string) error
	Append(ctx context.Context, snippets []string) error
	All(ctx context.Context) ([]string, error)
}

// RedisSnippetStore keeps snippets in a Redis list.
type RedisSnippetStore struct {
	client *redis.Client
	key    string
}

func NewRedisSnippetStore(client *redis.Client) *RedisSnippetStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	return &RedisSnippetStore{client: client, key: snippetKeyPrefix + "default"}
}

func (r *RedisSnippetStore) Replace(ctx context.Context, snippets []string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key)
	if len(snippets) > 0 {
		args := make([]interface{}, len(snippets))
		for i, s := range snippets {
			args[i] = s
		}
		pipe.RPush(ctx, r.key, args...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conversation: replace snippets: %w", err)
	}
	return nil
}

func (r *RedisSnippetStore) Append(ctx context.Context, snippets []string) error {
	if len(snippets) == 0 {
		return nil
	}
	args := make([]interface{}, len(snippets))
	for i, s := range snippets {
		args[i] = s
	}
	if err := r.client.RPush(ctx, r.key, args...).Err(); err != nil {
		return fmt.Errorf("conversation: append snippets: %w", err)
	}
	return nil
}

func (r *RedisSnippetStore) All(ctx context.Context) ([]string, error) {
	snippets, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conversation: load snippets: %w", err)
	}
	return snippets, nil
}

// MemorySnippetStore is the in-process fallback used when Redis is not
// available. Snippets added at runtime do not survive a restart.
type MemorySnippetStore struct {
	mu       sync.RWMutex
	snippets []string
}

func NewMemorySnippetStore() *MemorySnippetStore {
	return &MemorySnippetStore{}
}

func (m *MemorySnippetStore) Replace(_ context.Context, snippets []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snippets = append([]string(nil), snippets...)
	return nil
}

func (m *MemorySnippetStore) Append(_ context.Context, snippets []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snippets = append(m.snippets, snippets...)
	return nil
}

func (m *MemorySnippetStore) All(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.snippets...), nil
}

var tokenRE = regexp.MustCompile(`[a-z0-9]+`)

// Retrieve scores each snippet by lexical overlap with the query and
// returns the top k, best first. Ties keep original snippet order.
func Retrieve(query string, snippets []string, k int) []string {
	queryTokens := map[string]struct{}{}
	for _, tok := range tokenRE.FindAllString(strings.ToLower(query), -1) {
		if len(tok) > 2 {
			queryTokens[tok] = struct{}{}
		}
	}
	if len(queryTokens) == 0 || k <= 0 {
		return nil
	}

	type scored struct {
		index int
		score int
	}
	var hits []scored
	for i, snippet := range snippets {
		seen := map[string]struct{}{}
		score := 0
		for _, tok := range tokenRE.FindAllString(strings.ToLower(snippet), -1) {
			if _, q := queryTokens[tok]; !q {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			score++
		}
		if score > 0 {
			hits = append(hits, scored{index: i, score: score})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, snippets[h.index])
	}
	return out
}
