// Package persona describes the sales agent's identity and qualification script.
package persona

import (
	"strings"
)

// Tone selects the speaking style of the agent.
type Tone string

const (
	ToneConcise      Tone = "concise"
	ToneConsultative Tone = "consultative"
	ToneEnthusiastic Tone = "enthusiastic"
	TonePremium      Tone = "premium"
)

// Tones lists every supported tone.
var Tones = []Tone{ToneConcise, ToneConsultative, ToneEnthusiastic, TonePremium}

// The configuration editor and its .env exporter write French tone labels.
var toneAliases = map[string]Tone{
	"concis":       ToneConcise,
	"consultatif":  ToneConsultative,
	"enthousiaste": ToneEnthusiastic,
}

// ParseTone maps a canonical tone or one of its French aliases onto a Tone.
func ParseTone(s string) (Tone, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range Tones {
		if string(t) == s {
			return t, true
		}
	}
	t, ok := toneAliases[s]
	return t, ok
}

// Language selects the register of the system instructions and canned replies.
type Language string

const (
	LanguageFrench  Language = "fr"
	LanguageEnglish Language = "en"
)

// Persona is the configuration driving how the agent speaks and what it asks.
// It is built fresh for every request and never mutated afterwards.
type Persona struct {
	CompanyName            string   `json:"companyName" validate:"required"`
	ValueProposition       string   `json:"valueProposition" validate:"required"`
	TargetProfile          string   `json:"targetProfile" validate:"required"`
	Tone                   Tone     `json:"tone" validate:"required,oneof=concise consultative enthusiastic premium"`
	QualificationQuestions []string `json:"qualificationQuestions" validate:"min=1,dive,required"`
	ClosingStrategy        string   `json:"closingStrategy" validate:"required"`
	CallToAction           string   `json:"callToAction" validate:"required"`
	Language               Language `json:"language" validate:"required,oneof=fr en"`
}

// Normalize trims every free-text field and canonicalizes tone aliases.
// Unknown tones are kept verbatim so validation can name them.
func Normalize(p Persona) Persona {
	out := Persona{
		CompanyName:      strings.TrimSpace(p.CompanyName),
		ValueProposition: strings.TrimSpace(p.ValueProposition),
		TargetProfile:    strings.TrimSpace(p.TargetProfile),
		Tone:             Tone(strings.TrimSpace(string(p.Tone))),
		ClosingStrategy:  strings.TrimSpace(p.ClosingStrategy),
		CallToAction:     strings.TrimSpace(p.CallToAction),
		Language:         Language(strings.ToLower(strings.TrimSpace(string(p.Language)))),
	}
	if t, ok := ParseTone(string(p.Tone)); ok {
		out.Tone = t
	}
	if p.QualificationQuestions != nil {
		out.QualificationQuestions = make([]string, len(p.QualificationQuestions))
		for i, q := range p.QualificationQuestions {
			out.QualificationQuestions[i] = strings.TrimSpace(q)
		}
	}
	return out
}

// Default returns the built-in persona used when the environment is misconfigured.
func Default() Persona {
	return Persona{
		CompanyName:      "NovaSales",
		ValueProposition: "Solution CRM tout-en-un pour automatiser vos ventes B2B et augmenter votre taux de conversion de 35%.",
		TargetProfile:    "Dirigeants de PME (10-100 employés) dans les services et le e-commerce, déjà équipés d'un CRM basique mais insatisfaits.",
		Tone:             ToneConsultative,
		QualificationQuestions: []string{
			"Quel est aujourd'hui votre principal défi commercial au quotidien ?",
			"Combien de commerciaux travaillent sur vos prospects chaque mois ?",
			"Quelle solution utilisez-vous actuellement et qu'est-ce qui vous manque le plus ?",
		},
		ClosingStrategy: "Positionner l'offre comme la solution évidente, proposer une démonstration personnalisée et souligner la valeur immédiate.",
		CallToAction:    "Proposer un créneau pour une démo en visio de 20 minutes avec un expert.",
		Language:        LanguageFrench,
	}
}
