// Package prompt compiles a persona into the system instructions sent to the model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/closerflow/whatsapp-agent/internal/persona"
)

// Temperature returns the sampling temperature bound to a tone.
// Tones are validated upstream, so an unknown tone is a programming error.
func Temperature(t persona.Tone) float64 {
	switch t {
	case persona.ToneConcise:
		return 0.3
	case persona.ToneConsultative:
		return 0.5
	case persona.ToneEnthusiastic:
		return 0.7
	case persona.TonePremium:
		return 0.4
	}
	panic(fmt.Sprintf("prompt: unknown tone %q", t))
}

type phrasing struct {
	intro        string
	sep          string
	valueLabel   string
	targetLabel  string
	toneLabel    string
	scriptIntro  string
	closingLabel string
	ctaLabel     string
	rules        []string
	languageRule string
	tones        map[persona.Tone]string
}

var phrasings = map[persona.Language]phrasing{
	persona.LanguageFrench: {
		sep:          " : ",
		intro:        "Tu es l'agent commercial WhatsApp de %s. Ta mission : qualifier le prospect puis le guider vers la conclusion.",
		valueLabel:   "Proposition de valeur",
		targetLabel:  "Profil cible",
		toneLabel:    "Ton",
		scriptIntro:  "Script de qualification (pose ces questions dans cet ordre, une seule à la fois, en t'adaptant aux réponses) :",
		closingLabel: "Stratégie de closing",
		ctaLabel:     "Appel à l'action",
		rules: []string{
			"Réponds en messages courts adaptés à WhatsApp (3 phrases maximum).",
			"Ne pose jamais plus d'une question par message.",
			"Traite les objections avec empathie avant de relancer.",
			"Quand le prospect est qualifié, applique la stratégie de closing et propose l'appel à l'action.",
		},
		languageRule: "Réponds exclusivement en français et vouvoie le prospect.",
		tones: map[persona.Tone]string{
			persona.ToneConcise:      "direct et efficace",
			persona.ToneConsultative: "consultatif et rassurant",
			persona.ToneEnthusiastic: "énergique et émotionnel",
			persona.TonePremium:      "haut de gamme et exclusif",
		},
	},
	persona.LanguageEnglish: {
		sep:          ": ",
		intro:        "You are the WhatsApp sales agent for %s. Your mission: qualify the prospect, then guide them to a close.",
		valueLabel:   "Value proposition",
		targetLabel:  "Target profile",
		toneLabel:    "Tone",
		scriptIntro:  "Qualification script (ask these questions in this order, one at a time, adapting to the answers):",
		closingLabel: "Closing strategy",
		ctaLabel:     "Call to action",
		rules: []string{
			"Keep replies short and suited to WhatsApp (3 sentences at most).",
			"Never ask more than one question per message.",
			"Handle objections with empathy before moving forward.",
			"Once the prospect is qualified, apply the closing strategy and offer the call to action.",
		},
		languageRule: "Respond exclusively in English.",
		tones: map[persona.Tone]string{
			persona.ToneConcise:      "direct and efficient",
			persona.ToneConsultative: "consultative and reassuring",
			persona.ToneEnthusiastic: "energetic and emotional",
			persona.TonePremium:      "high-end and exclusive",
		},
	},
}

// Compile renders the system prompt and temperature for p. It has no side effects:
// the same persona always yields byte-identical output. Nothing is truncated.
func Compile(p persona.Persona) (string, float64) {
	temperature := Temperature(p.Tone)

	ph, ok := phrasings[p.Language]
	if !ok {
		ph = phrasings[persona.LanguageFrench]
	}

	var b strings.Builder
	fmt.Fprintf(&b, ph.intro, p.CompanyName)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s%s%s\n", ph.valueLabel, ph.sep, p.ValueProposition)
	fmt.Fprintf(&b, "%s%s%s\n", ph.targetLabel, ph.sep, p.TargetProfile)
	fmt.Fprintf(&b, "%s%s%s\n\n", ph.toneLabel, ph.sep, ph.tones[p.Tone])

	b.WriteString(ph.scriptIntro)
	b.WriteString("\n")
	for i, q := range p.QualificationQuestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s%s%s\n", ph.closingLabel, ph.sep, p.ClosingStrategy)
	fmt.Fprintf(&b, "%s%s%s\n\n", ph.ctaLabel, ph.sep, p.CallToAction)

	for _, rule := range ph.rules {
		fmt.Fprintf(&b, "- %s\n", rule)
	}
	fmt.Fprintf(&b, "- %s", ph.languageRule)

	return b.String(), temperature
}
