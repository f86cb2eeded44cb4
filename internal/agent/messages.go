package agent

import (
	"fmt"

	"github.com/closerflow/whatsapp-agent/internal/persona"
)

type cannedReplies struct {
	greeting         string
	clarification    string
	rephrase         string
	technical        string
	simulateFallback string
}

var replies = map[persona.Language]cannedReplies{
	persona.LanguageFrench: {
		greeting:         "Bonjour ! Je suis %s. Comment puis-je vous aider aujourd'hui ?",
		clarification:    "Merci pour votre message. Pouvez-vous préciser votre demande ?",
		rephrase:         "Je vous remercie pour votre message. Pourriez-vous reformuler ?",
		technical:        "Nous rencontrons un léger contretemps technique. Un conseiller reprendra la conversation très vite.",
		simulateFallback: "Je n'ai pas pu générer de réponse pour le moment.",
	},
	persona.LanguageEnglish: {
		greeting:         "Hello! I'm %s. How can I help you today?",
		clarification:    "Thanks for your message. Could you tell me a bit more about what you need?",
		rephrase:         "Thank you for your message. Could you rephrase it?",
		technical:        "We're experiencing a brief technical issue. An advisor will pick up the conversation very soon.",
		simulateFallback: "I couldn't generate a reply right now.",
	},
}

func repliesFor(lang persona.Language) cannedReplies {
	if r, ok := replies[lang]; ok {
		return r
	}
	return replies[persona.LanguageFrench]
}

func greetingFor(p persona.Persona) string {
	return fmt.Sprintf(repliesFor(p.Language).greeting, p.CompanyName)
}
