// Package lesson maps the worst coherence pillar to a short lesson.
package lesson

import (
	"lidereos/internal/coherence"
	"lidereos/internal/domain"
)

// General tags a lesson that belongs to no pillar.
const General = "general"

// Guidance is the weekly suggested action shown under the lesson.
const Guidance = "Registre ao menos um acompanhamento de tarefa ou feedback nos próximos 7 dias para melhorar este pilar."

// Defaults is the built-in catalog, two lessons per pillar.
var Defaults = []domain.Lesson{
	{ID: 1, Pillar: string(coherence.Rhythm), Title: "Presença sustenta clareza", Text: "Times não travam por falta de decisão, mas por ausência após o combinado."},
	{ID: 2, Pillar: string(coherence.Rhythm), Title: "Acompanhamento não é controle", Text: "Revisitar tarefas não diminui autonomia. Aumenta a confiança de quem executa."},
	{ID: 6, Pillar: string(coherence.Responsibility), Title: "Tarefa sem dono vira intenção", Text: "Se ninguém é responsável, ninguém se sente cobrado."},
	{ID: 7, Pillar: string(coherence.Responsibility), Title: "Clareza evita retrabalho", Text: "Definir quem faz o quê é um ato de respeito ao tempo do time."},
	{ID: 11, Pillar: string(coherence.Response), Title: "Atraso é dado, não falha moral", Text: "Toda tarefa atrasada traz informação. Ignorá-la desperdiça aprendizado."},
	{ID: 12, Pillar: string(coherence.Response), Title: "Problemas não somem sozinhos", Text: "O que não é revisitado tende a se repetir."},
	{ID: 16, Pillar: string(coherence.Consistency), Title: "Reunião sem ação cria ruído", Text: "Conversas que não viram tarefa enfraquecem a liderança."},
	{ID: 17, Pillar: string(coherence.Consistency), Title: "Decisão precisa virar movimento", Text: "Decidir sem executar é só alinhar intenção."},
}

// DefaultChecklist holds the reflection questions asked before acting.
var DefaultChecklist = []string{
	"Isso precisa ser decidido por você agora?",
	"Isso pode virar uma regra?",
	"Isso é urgente ou importante?",
	"Estou resolvendo ou evitando algo?",
}

// Select returns the first lesson tagged with worst, or the first lesson of
// the catalog when none is. It reports false only for an empty catalog.
func Select(worst coherence.PillarKey, catalog []domain.Lesson) (domain.Lesson, bool) {
	if len(catalog) == 0 {
		return domain.Lesson{}, false
	}
	if worst != "" {
		for _, l := range catalog {
			if l.Pillar == string(worst) {
				return l, true
			}
		}
	}
	return catalog[0], true
}

type Orientation struct {
	WorstPillar coherence.PillarKey    `json:"worst_pillar_key"`
	Pillar      coherence.PillarResult `json:"pillar"`
	Lesson      *domain.Lesson         `json:"lesson,omitempty"`
	Guidance    string                 `json:"guidance"`
	Checklist   []string               `json:"checklist"`
}

// Orient builds the weekly orientation for report.
func Orient(report coherence.Report, catalog []domain.Lesson, checklist []string) Orientation {
	o := Orientation{
		WorstPillar: report.WorstPillar,
		Pillar:      report.Pillars.Get(report.WorstPillar),
		Guidance:    Guidance,
		Checklist:   append([]string(nil), checklist...),
	}
	if l, ok := Select(report.WorstPillar, catalog); ok {
		o.Lesson = &l
	}
	return o
}
