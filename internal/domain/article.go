package domain

import (
	"sync"
	"time"
)

// Article is the unit flowing through the pipeline. Each stage rewrites
// Content/Summary and enriches Metadata in place; ID never changes after
// the upstream fetch created it.
type Article struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Summary     string         `json:"summary,omitempty"`
	Author      string         `json:"author,omitempty"`
	PublishedAt time.Time      `json:"published_at,omitempty"`
	Source      string         `json:"source,omitempty"`
	URL         string         `json:"url,omitempty"`
	Category    string         `json:"category,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	mu sync.RWMutex
}

func (a *Article) GetMetadata(key string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.Metadata == nil {
		return nil, false
	}
	val, ok := a.Metadata[key]
	return val, ok
}

func (a *Article) AddMetadata(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Metadata == nil {
		a.Metadata = make(map[string]any)
	}
	a.Metadata[key] = value
}

func (a *Article) GetContent() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Content
}

func (a *Article) SetContent(content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Content = content
}

func (a *Article) GetSummary() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Summary
}

func (a *Article) SetSummary(summary string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Summary = summary
}

// WordCount counts whitespace-separated tokens in the current content.
func (a *Article) WordCount() int {
	content := a.GetContent()
	count := 0
	inWord := false
	for _, r := range content {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			inWord = false
		case !inWord:
			count++
			inWord = true
		}
	}
	return count
}
