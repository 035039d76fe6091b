package noise

import (
	"log/slog"
	"strings"
	"testing"

	"newsforge/internal/config"
	"newsforge/internal/domain"
)

func testFilter() *Filter {
	return New(config.NoiseConfig{
		Enabled:            true,
		MinContentLength:   50,
		MinWordCount:       10,
		MaxRepetitionRatio: 0.3,
	}, slog.New(slog.DiscardHandler))
}

const cleanBody = "The central bank held rates steady on Wednesday, pointing to cooling inflation " +
	"and a resilient labor market. Investors had priced in the pause, and equity indexes " +
	"closed broadly unchanged after the announcement."

func TestFilterNoiseRejectsBelowQualityGate(t *testing.T) {
	f := testFilter()
	short := "Barely forty characters of content here."
	article := &domain.Article{ID: "n1", Content: short}

	stats, err := f.FilterNoise(article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stats.Rejected {
		t.Fatal("expected rejection below the quality gate")
	}
	if article.GetContent() != short {
		t.Fatalf("rejected article was modified: %q", article.GetContent())
	}
	if stats.RemovedAds != 0 || stats.RemovedDisclaimers != 0 || stats.RemovedSpam != 0 || stats.RemovedRepetition != 0 {
		t.Fatalf("rejected article reported removals: %+v", stats)
	}
}

func TestFilterNoiseStripsAdsAndSpam(t *testing.T) {
	f := testFilter()
	article := &domain.Article{
		ID: "n2",
		Content: cleanBody + "\n" +
			"Sponsored content by ExampleCorp\n" +
			"Click here to claim your reward\n" +
			"Disclaimer: not financial advice",
	}

	stats, err := f.FilterNoise(article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.RemovedAds == 0 {
		t.Error("expected ad removal")
	}
	if stats.RemovedSpam == 0 {
		t.Error("expected spam removal")
	}
	if stats.RemovedDisclaimers == 0 {
		t.Error("expected disclaimer removal")
	}

	content := strings.ToLower(article.GetContent())
	for _, phrase := range []string{"sponsored content", "click here", "disclaimer"} {
		if strings.Contains(content, phrase) {
			t.Errorf("%q survived filtering: %q", phrase, content)
		}
	}
	if !strings.Contains(article.GetContent(), "central bank held rates steady") {
		t.Fatalf("real content was eaten: %q", article.GetContent())
	}
	if got, ok := article.GetMetadata("noiseFiltered"); !ok || got != true {
		t.Fatal("noiseFiltered metadata flag missing")
	}
}

func TestFilterNoiseRelevanceGateKeepsOriginal(t *testing.T) {
	f := testFilter()
	offTopic := cleanBody + " " + strings.Repeat("celebrity gossip horoscope lottery recipe ", 3)
	article := &domain.Article{ID: "n3", Content: offTopic}

	stats, err := f.FilterNoise(article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stats.RelevanceFailed {
		t.Fatal("expected the relevance gate to fail")
	}
	if article.GetContent() != offTopic {
		t.Fatalf("content should stay untouched when relevance fails: %q", article.GetContent())
	}
	if got, ok := article.GetMetadata("noiseFiltered"); !ok || got != false {
		t.Fatal("expected noiseFiltered=false metadata")
	}
}

func TestFilterNoiseCollapsesRepetition(t *testing.T) {
	f := testFilter()
	repeated := "Breaking update on the exchange outage affecting spot trading today. "
	article := &domain.Article{
		ID:      "n4",
		Content: repeated + repeated + "Engineers restored service within two hours and withdrawals resumed normally afterward.",
	}

	stats, err := f.FilterNoise(article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.RemovedRepetition == 0 {
		t.Fatal("expected repetition removal")
	}
	if n := strings.Count(article.GetContent(), "Breaking update on the exchange outage"); n != 1 {
		t.Fatalf("expected one copy of the repeated block, found %d", n)
	}
}

func TestNoiseScore(t *testing.T) {
	f := testFilter()

	clean := f.NoiseScore(cleanBody)
	spammy := f.NoiseScore("Click here! Buy now! Click here to sign up now! " +
		"Buy now buy now buy now buy now buy now buy now.")

	if clean < 0 || clean > 1 || spammy < 0 || spammy > 1 {
		t.Fatalf("scores out of range: clean=%v spammy=%v", clean, spammy)
	}
	if spammy <= clean {
		t.Fatalf("spammy text scored %v, clean scored %v", spammy, clean)
	}
}
