package lesson

import (
	"testing"

	"lidereos/internal/coherence"
	"lidereos/internal/domain"
)

func TestSelectByPillar(t *testing.T) {
	cases := []struct {
		worst coherence.PillarKey
		want  int
	}{
		{coherence.Rhythm, 1},
		{coherence.Responsibility, 6},
		{coherence.Response, 11},
		{coherence.Consistency, 16},
		{"", 1},
	}
	for _, tc := range cases {
		l, ok := Select(tc.worst, Defaults)
		if !ok || l.ID != tc.want {
			t.Fatalf("worst=%q: got %d (ok=%v), want %d", tc.worst, l.ID, ok, tc.want)
		}
	}
}

func TestSelectFallsBackToFirst(t *testing.T) {
	catalog := []domain.Lesson{
		{ID: 40, Pillar: General, Title: "Comece pequeno"},
		{ID: 41, Pillar: string(coherence.Rhythm), Title: "Ritmo"},
	}
	if l, ok := Select(coherence.Consistency, catalog); !ok || l.ID != 40 {
		t.Fatalf("expected fallback to 40, got %d (ok=%v)", l.ID, ok)
	}
	if l, ok := Select(coherence.Rhythm, catalog); !ok || l.ID != 41 {
		t.Fatalf("expected 41, got %d (ok=%v)", l.ID, ok)
	}
}

func TestSelectEmptyCatalog(t *testing.T) {
	if _, ok := Select(coherence.Rhythm, nil); ok {
		t.Fatalf("expected no lesson from an empty catalog")
	}
}

func TestOrient(t *testing.T) {
	report := coherence.Report{
		Overall:     coherence.LevelMedium,
		WorstPillar: coherence.Response,
		Pillars: coherence.PillarSet{
			Response: coherence.PillarResult{Status: coherence.StatusCritical, Label: "Resposta"},
		},
	}
	o := Orient(report, Defaults, DefaultChecklist)
	if o.Lesson == nil || o.Lesson.Title != "Atraso é dado, não falha moral" {
		t.Fatalf("unexpected lesson: %+v", o.Lesson)
	}
	if o.Pillar.Status != coherence.StatusCritical {
		t.Fatalf("pillar status = %s", o.Pillar.Status)
	}
	if o.Guidance != Guidance || len(o.Checklist) != 4 {
		t.Fatalf("unexpected guidance/checklist: %q %v", o.Guidance, o.Checklist)
	}

	o = Orient(report, nil, nil)
	if o.Lesson != nil || len(o.Checklist) != 0 {
		t.Fatalf("expected empty orientation, got %+v", o)
	}
}
