package factor

import (
	"context"
	"strings"
	"sync"
	"time"
)

// SentimentProvider supplies the sentiment factor for a symbol on the 0-10 scale.
type SentimentProvider interface {
	Sentiment(ctx context.Context, symbol string) (float64, error)
}

// SentimentFunc adapts a function to SentimentProvider.
type SentimentFunc func(ctx context.Context, symbol string) (float64, error)

// Sentiment calls f.
func (f SentimentFunc) Sentiment(ctx context.Context, symbol string) (float64, error) {
	return f(ctx, symbol)
}

// NeutralSentiment always reports the neutral score.
type NeutralSentiment struct{}

// Sentiment returns Neutral.
func (NeutralSentiment) Sentiment(context.Context, string) (float64, error) {
	return Neutral, nil
}

// StaticSentiment serves fixed per-symbol scores, for configuration and tests.
type StaticSentiment struct {
	scores   map[string]float64
	fallback float64
}

// NewStaticSentiment creates a provider from a symbol->score map. Symbols are
// matched case-insensitively; unknown symbols get fallback.
func NewStaticSentiment(scores map[string]float64, fallback float64) *StaticSentiment {
	normalized := make(map[string]float64, len(scores))
	for k, v := range scores {
		normalized[strings.ToUpper(k)] = Clamp(v)
	}
	return &StaticSentiment{scores: normalized, fallback: Clamp(fallback)}
}

// Sentiment returns the configured score for symbol.
func (s *StaticSentiment) Sentiment(_ context.Context, symbol string) (float64, error) {
	if v, ok := s.scores[strings.ToUpper(symbol)]; ok {
		return v, nil
	}
	return s.fallback, nil
}

// NewsItem is a news article with a polarity score in [-1, 1].
type NewsItem struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	Symbols     []string  `json:"symbols,omitempty"`
	Sentiment   float64   `json:"sentiment"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsProvider provides recent news for a symbol.
type NewsProvider interface {
	GetNews(ctx context.Context, symbol string, days int) ([]NewsItem, error)
}

// NewsSentiment maps the mean polarity of recent news onto the 0-10 scale
// (5 + 5*polarity). No news is neutral.
type NewsSentiment struct {
	news NewsProvider
	days int
}

// NewNewsSentiment creates a news-backed sentiment provider looking back days.
func NewNewsSentiment(news NewsProvider, days int) *NewsSentiment {
	if days <= 0 {
		days = 3
	}
	return &NewsSentiment{news: news, days: days}
}

// Sentiment averages the polarity of the symbol's recent news.
func (n *NewsSentiment) Sentiment(ctx context.Context, symbol string) (float64, error) {
	items, err := n.news.GetNews(ctx, symbol, n.days)
	if err != nil {
		return Neutral, err
	}
	if len(items) == 0 {
		return Neutral, nil
	}

	sum := 0.0
	for _, item := range items {
		p := item.Sentiment
		if p > 1 {
			p = 1
		} else if p < -1 {
			p = -1
		}
		sum += p
	}
	return Clamp(Neutral + Neutral*sum/float64(len(items))), nil
}

// StaticNewsProvider returns configured news items.
type StaticNewsProvider struct {
	mu   sync.RWMutex
	news []NewsItem
	now  func() time.Time
}

// NewStaticNewsProvider creates a news provider with static news items.
func NewStaticNewsProvider(news []NewsItem) *StaticNewsProvider {
	return &StaticNewsProvider{news: news, now: time.Now}
}

// Add appends a news item.
func (p *StaticNewsProvider) Add(item NewsItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.news = append(p.news, item)
}

// GetNews returns news items for the given symbol published within days.
func (p *StaticNewsProvider) GetNews(_ context.Context, symbol string, days int) ([]NewsItem, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	cutoff := p.now().AddDate(0, 0, -days)
	var result []NewsItem
	for _, item := range p.news {
		if item.PublishedAt.Before(cutoff) {
			continue
		}
		for _, s := range item.Symbols {
			if strings.EqualFold(s, symbol) {
				result = append(result, item)
				break
			}
		}
	}
	return result, nil
}
